// Package analysis runs the upload wizard: store the resume, render its first page,
// ask the AI service for feedback and persist the result.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/resumind/internal/feedback"
	"github.com/jonathan/resumind/internal/format"
	"github.com/jonathan/resumind/internal/kv"
	"github.com/jonathan/resumind/internal/llm"
	"github.com/jonathan/resumind/internal/pdf"
	"github.com/jonathan/resumind/internal/prompts"
	"github.com/jonathan/resumind/internal/types"
)

// Step names the stages of a run.
type Step string

const (
	StepUpload      Step = "upload"
	StepConvert     Step = "convert"
	StepUploadImage Step = "upload_image"
	StepPrepare     Step = "prepare"
	StepAnalyze     Step = "analyze"
	StepSave        Step = "save"
	StepDone        Step = "done"
)

// Status texts shown to the user while a run progresses.
const (
	MsgUploading      = "Uploading the file..."
	MsgConverting     = "Converting to image..."
	MsgUploadingImage = "Uploading the image..."
	MsgPreparing      = "Preparing Data"
	MsgAnalysing      = "Analysing..."
	MsgSaving         = "Analysing complete — saving feedback..."
	MsgSaved          = "Analysis saved. Redirecting..."
	MsgSavedLocally   = "Analysis saved locally — failed to save to Firestore (permissions)."

	MsgUploadFailed      = "Error: Failed to upload File"
	MsgNoImage           = "Error: No image file produced from PDF."
	MsgImageUploadFailed = "Error: Failed to upload Image"
	MsgAnalyzeFailed     = "Failed to Analyse resume"
)

// ProgressEvent represents a status update during a run
type ProgressEvent struct {
	Step    Step   `json:"step"`
	Message string `json:"message"`
	Failed  bool   `json:"failed,omitempty"`
}

// ProgressCallback is called when a run makes progress
type ProgressCallback func(event ProgressEvent)

// StepError is returned when a run stops. Message is the status text shown to the user.
type StepError struct {
	Step    Step
	Message string
	Cause   error
}

func (e *StepError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *StepError) Unwrap() error {
	return e.Cause
}

// FileStore keeps uploaded files.
type FileStore interface {
	Upload(ctx context.Context, owner, name string, r io.Reader) (*types.FSItem, error)
}

// Converter renders the first page of a PDF to PNG.
type Converter interface {
	Convert(ctx context.Context, data []byte) ([]byte, error)
}

// AnalysisSaver persists the finished resume record in the document store.
type AnalysisSaver interface {
	SaveAnalysis(ctx context.Context, owner string, resume types.Resume, savedBy *string) (string, error)
}

// Input is what the upload form submits.
type Input struct {
	CompanyName    string
	JobTitle       string
	JobDescription string
	FileName       string
	Data           []byte
	// SavedBy is the uploader's user id, nil when unknown.
	SavedBy *string
}

// Result is a finished run.
type Result struct {
	Resume types.Resume `json:"resume"`
	// Redirect is the page showing the resume.
	Redirect string `json:"redirect"`
	// Status is the last status text, which tells whether the document store copy was saved.
	Status string `json:"status"`
	// DocumentID is empty when the document store copy failed.
	DocumentID string `json:"documentId,omitempty"`
}

// Analyzer wires the stores and services used by a run.
type Analyzer struct {
	files     FileStore
	converter Converter
	kv        kv.Store
	llm       llm.Client
	saver     AnalysisSaver
	logger    *zap.Logger
	tier      llm.ModelTier
	now       func() time.Time
}

// New creates an Analyzer. saver may be nil, in which case runs always end with MsgSavedLocally.
func New(files FileStore, converter Converter, store kv.Store, client llm.Client, saver AnalysisSaver, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		files:     files,
		converter: converter,
		kv:        store,
		llm:       client,
		saver:     saver,
		logger:    logger,
		tier:      llm.TierStandard,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithTier selects the model tier used for reviews.
func (a *Analyzer) WithTier(tier llm.ModelTier) *Analyzer {
	a.tier = tier
	return a
}

// Run executes the upload flow for owner. progress may be nil.
func (a *Analyzer) Run(ctx context.Context, owner string, in Input, progress ProgressCallback) (*Result, error) {
	emit := func(step Step, msg string) {
		if progress != nil {
			progress(ProgressEvent{Step: step, Message: msg})
		}
	}
	fail := func(step Step, msg string, cause error) error {
		a.logger.Warn("analysis step failed",
			zap.String("owner", owner),
			zap.String("step", string(step)),
			zap.Error(cause))
		if progress != nil {
			progress(ProgressEvent{Step: step, Message: msg, Failed: true})
		}
		return &StepError{Step: step, Message: msg, Cause: cause}
	}

	// 1. Store the PDF.
	emit(StepUpload, MsgUploading)
	info, err := pdf.Inspect(in.Data)
	if errors.Is(err, pdf.ErrNotPDF) {
		return nil, fail(StepUpload, MsgUploadFailed, err)
	}
	resumeFile, err := a.files.Upload(ctx, owner, in.FileName, bytes.NewReader(in.Data))
	if err != nil {
		return nil, fail(StepUpload, MsgUploadFailed, err)
	}

	// 2. Render the first page.
	emit(StepConvert, MsgConverting)
	image, err := a.converter.Convert(ctx, in.Data)
	if err != nil {
		if errors.Is(err, pdf.ErrNoImage) {
			return nil, fail(StepConvert, MsgNoImage, err)
		}
		return nil, fail(StepConvert, err.Error(), err)
	}
	if len(image) == 0 {
		return nil, fail(StepConvert, MsgNoImage, pdf.ErrNoImage)
	}

	// 3. Store the image next to the PDF.
	emit(StepUploadImage, MsgUploadingImage)
	imageFile, err := a.files.Upload(ctx, owner, imageName(resumeFile.Name), bytes.NewReader(image))
	if err != nil {
		return nil, fail(StepUploadImage, MsgImageUploadFailed, err)
	}

	// 4. Write the pending record.
	emit(StepPrepare, MsgPreparing)
	resume := types.Resume{
		ID:             format.NewID(),
		ResumePath:     resumeFile.Path,
		ImagePath:      imageFile.Path,
		CompanyName:    in.CompanyName,
		JobTitle:       in.JobTitle,
		JobDescription: in.JobDescription,
		CreatedAt:      a.now(),
	}
	if err := a.putPending(ctx, owner, resume); err != nil {
		a.logger.Warn("failed to write pending resume record",
			zap.String("owner", owner),
			zap.String("resume_id", resume.ID),
			zap.Error(err))
	}

	// 5. Ask for feedback.
	emit(StepAnalyze, MsgAnalysing)
	req := llm.FeedbackRequest{
		Instructions: prompts.PrepareInstructions(in.JobTitle, in.JobDescription),
		Image:        image,
		Tier:         a.tier,
	}
	if info != nil {
		req.ResumeText = info.Text
	}
	text, err := a.llm.GenerateFeedback(ctx, req)
	if err != nil {
		return nil, fail(StepAnalyze, MsgAnalyzeFailed, err)
	}
	text = llm.CleanJSONBlock(text)
	resume.Feedback = feedback.Parse(text)
	if err := feedback.Validate(text); err != nil {
		a.logger.Info("feedback does not match the expected schema",
			zap.String("resume_id", resume.ID),
			zap.Error(err))
	}
	if err := a.put(ctx, owner, resume); err != nil {
		a.logger.Warn("failed to update resume record with feedback",
			zap.String("owner", owner),
			zap.String("resume_id", resume.ID),
			zap.Error(err))
	}

	// 6. Keep a copy in the document store.
	emit(StepSave, MsgSaving)
	result := &Result{
		Resume:   resume,
		Redirect: "/resume/" + resume.ID,
		Status:   MsgSaved,
	}
	if a.saver == nil {
		result.Status = MsgSavedLocally
	} else if id, err := a.saver.SaveAnalysis(ctx, owner, resume, in.SavedBy); err != nil {
		a.logger.Warn("failed to save analysis to the document store",
			zap.String("owner", owner),
			zap.String("resume_id", resume.ID),
			zap.Error(err))
		result.Status = MsgSavedLocally
	} else {
		result.DocumentID = id
	}
	emit(StepDone, result.Status)

	a.logger.Info("analysis complete",
		zap.String("owner", owner),
		zap.String("resume_id", resume.ID),
		zap.Float64("overall_score", resume.OverallScore()),
		zap.Bool("document_saved", result.DocumentID != ""))
	return result, nil
}

// putPending writes the record with an empty feedback string, the marker of an unfinished analysis.
func (a *Analyzer) putPending(ctx context.Context, owner string, resume types.Resume) error {
	type pending struct {
		types.Resume
		Feedback string `json:"feedback"`
	}
	data, err := json.Marshal(pending{Resume: resume})
	if err != nil {
		return err
	}
	return a.kv.Set(ctx, owner, types.KVKey(resume.ID), string(data))
}

func (a *Analyzer) put(ctx context.Context, owner string, resume types.Resume) error {
	data, err := json.Marshal(resume)
	if err != nil {
		return err
	}
	return a.kv.Set(ctx, owner, types.KVKey(resume.ID), string(data))
}

// imageName returns the PNG name for a stored PDF name.
func imageName(name string) string {
	base := strings.TrimSuffix(name, path.Ext(name))
	if base == "" {
		base = "resume"
	}
	return base + ".png"
}
