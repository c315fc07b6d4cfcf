package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resumind/internal/analysis"
	"github.com/jonathan/resumind/internal/server/middleware"
	"github.com/jonathan/resumind/internal/users"
)

func page(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	return doc
}

func form(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func withCookie(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: token})
	return req
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                   "/",
		"/upload":            "/upload",
		"/resume/1?x=2":      "/resume/1?x=2",
		"//evil.example":     "/",
		"/\\evil.example":    "/",
		"https://evil.test/": "/",
		"upload":             "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeNext(in), in)
	}
}

func TestAuthPage(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/auth?next=/upload", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	doc := page(t, rec)
	assert.Equal(t, 3, doc.Find("form.auth-form").Length())
	next, _ := doc.Find("#login-form input[name=next]").Attr("value")
	assert.Equal(t, "/upload", next)

	// Signed-in users skip the page.
	_, token := ts.guest(t)
	rec = ts.do(withCookie(httptest.NewRequest(http.MethodGet, "/auth?next=/wipe", nil), token))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/wipe", rec.Header().Get("Location"))
}

func TestAuthForm_GuestThenHome(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(form("/auth/guest", url.Values{"next": {"//evil.example"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = ts.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := page(t, rec)
	assert.Equal(t, "No resumes found, Upload an Resume to get the Feedback.", doc.Find(".page-heading h2").Text())
	assert.Equal(t, 1, doc.Find("nav.navbar form[action='/logout']").Length())
}

func TestAuthForm_RegisterAndLogin(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(form("/auth/register", url.Values{
		"name": {"Ada"}, "email": {"ada@example.com"}, "password": {"correct-horse"}, "next": {"/upload"},
	}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/upload", rec.Header().Get("Location"))

	rec = ts.do(form("/auth/login", url.Values{"email": {"ada@example.com"}, "password": {"nope"}}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, strings.TrimSpace(page(t, rec).Find(".status-error").Text()))

	rec = ts.do(form("/auth/login", url.Values{"email": {"ada@example.com"}, "password": {"correct-horse"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	sessionCookie(t, rec)

	rec = ts.do(form("/auth/register", url.Values{"name": {"Ada"}, "email": {"bad"}, "password": {"correct-horse"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(form("/auth/other", url.Values{}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogoutForm(t *testing.T) {
	ts := newTestServer(t, nil)
	_, token := ts.guest(t)

	rec := ts.do(withCookie(form("/logout", url.Values{}), token))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth", rec.Header().Get("Location"))
	assert.Equal(t, -1, sessionCookie(t, rec).MaxAge)
}

func TestUploadFlow_Pages(t *testing.T) {
	ts := newTestServer(t, nil)
	_, token := ts.guest(t)

	rec := ts.do(withCookie(httptest.NewRequest(http.MethodGet, "/upload", nil), token))
	require.Equal(t, http.StatusOK, rec.Code)
	doc := page(t, rec)
	assert.Equal(t, 1, doc.Find("form#upload-form input[type=file][name=file]").Length())

	rec = ts.do(withCookie(uploadRequest(t, "/upload", testPDF), token))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	location := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/resume/"), location)

	rec = ts.do(withCookie(httptest.NewRequest(http.MethodGet, location, nil), token))
	require.Equal(t, http.StatusOK, rec.Code)
	doc = page(t, rec)
	assert.Equal(t, "81/100", strings.TrimSpace(doc.Find(".score-circle-label").First().Text()))
	assert.Equal(t, 4, doc.Find(".summary-category").Length())

	rec = ts.do(withCookie(httptest.NewRequest(http.MethodGet, "/", nil), token))
	doc = page(t, rec)
	require.Equal(t, 1, doc.Find(".resume-card").Length())
	assert.Equal(t, "Acme", doc.Find(".resume-card .company").Text())

	id := strings.TrimPrefix(location, "/resume/")
	rec = ts.do(withCookie(form("/resume/"+id+"/delete", url.Values{}), token))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = ts.do(withCookie(httptest.NewRequest(http.MethodGet, location, nil), token))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadForm_Errors(t *testing.T) {
	ts := newTestServer(t, nil)
	_, token := ts.guest(t)

	rec := ts.do(withCookie(uploadRequest(t, "/upload", []byte("plain text")), token))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	doc := page(t, rec)
	assert.Equal(t, analysis.MsgUploadFailed, strings.TrimSpace(doc.Find("#status").Text()))

	ts.llm.err = assert.AnError
	rec = ts.do(withCookie(uploadRequest(t, "/upload", testPDF), token))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	doc = page(t, rec)
	assert.Equal(t, analysis.MsgAnalyzeFailed, strings.TrimSpace(doc.Find("#status").Text()))
	company, _ := doc.Find("#company-name").Attr("value")
	assert.Equal(t, "Acme", company)
}

func TestWipePages(t *testing.T) {
	ts := newTestServer(t, nil)
	_, token := ts.guest(t)

	rec := ts.do(withCookie(uploadRequest(t, "/upload", testPDF), token))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = ts.do(withCookie(httptest.NewRequest(http.MethodGet, "/wipe", nil), token))
	require.Equal(t, http.StatusOK, rec.Code)
	doc := page(t, rec)
	assert.Equal(t, "Authenticated as: Guest", doc.Find(".wipe h1").Text())
	assert.Equal(t, 2, doc.Find(".files-table tbody tr").Length())

	rec = ts.do(withCookie(form("/wipe", url.Values{}), token))
	require.Equal(t, http.StatusOK, rec.Code)
	doc = page(t, rec)
	assert.Zero(t, doc.Find(".files-table").Length())
	assert.Equal(t, "No files found.", doc.Find(".no-files").Text())
}

func TestPage_DeletedAccountClearsSession(t *testing.T) {
	ts := newTestServer(t, nil)
	user, token := ts.guest(t)

	require.NoError(t, users.NewRepository(ts.kv).DeleteUser(context.Background(), user.ID))

	rec := ts.do(withCookie(httptest.NewRequest(http.MethodGet, "/", nil), token))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, -1, sessionCookie(t, rec).MaxAge)
}
