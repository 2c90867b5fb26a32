package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/media-subtitle-translator/internal/artifact"
	"github.com/MimeLyc/media-subtitle-translator/internal/persistence"
	"github.com/MimeLyc/media-subtitle-translator/internal/pipeline"
	"github.com/MimeLyc/media-subtitle-translator/internal/subtitle"
	"github.com/MimeLyc/media-subtitle-translator/internal/transcription"
)

type stubTranscoder struct {
	duration float64
	probeErr error
}

func (s stubTranscoder) ProbeDuration(context.Context, string) (float64, error) {
	return s.duration, s.probeErr
}

func (s stubTranscoder) ExtractAudio(_ context.Context, _ string, dest string) error {
	return os.WriteFile(dest, []byte("RIFF"), 0o644)
}

type stubTranscriber struct{ text string }

func (s stubTranscriber) Transcribe(context.Context, transcription.Audio) (string, error) {
	return s.text, nil
}

type stubTranslator struct {
	byLanguage map[string]string
}

func (s stubTranslator) Translate(_ context.Context, _ string, lang string) (string, error) {
	text, ok := s.byLanguage[lang]
	if !ok {
		return "", errors.New("unsupported language")
	}
	return text, nil
}

type testEnv struct {
	server    *Server
	store     *persistence.SQLiteStore
	artifacts *artifact.Store
	transcode *stubTranscoder
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	root := t.TempDir()

	store, err := persistence.NewSQLiteStore(filepath.Join(root, "data", "translations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	artifacts := artifact.NewStore(filepath.Join(root, "output"))
	transcoder := &stubTranscoder{duration: 30}
	orch := pipeline.New(
		pipeline.Config{TempDir: filepath.Join(root, "temp")},
		transcoder,
		stubTranscriber{text: "Hello\nWorld"},
		stubTranslator{byLanguage: map[string]string{
			"French":                        "Bonjour\nMonde",
			"German":                        "Hallo\nWelt",
			"Chinese (Traditional, Taiwan)": "你好\n世界",
		}},
		artifacts,
	)
	return &testEnv{
		server:    NewServer(orch, store, artifacts, opts...),
		store:     store,
		artifacts: artifacts,
		transcode: transcoder,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, files map[string]string, languages ...string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := w.CreateFormFile("videos", name)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	for _, lang := range languages {
		require.NoError(t, w.WriteField("languages", lang))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/process_video", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestProcessVideo_ClipScenario(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(uploadRequest(t, map[string]string{"clip.mp4": "video"}, "French"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[processResponse](t, rec)
	assert.Equal(t, "processing completed", resp.Message)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "clip.mp4", resp.Results[0].VideoName)
	assert.Equal(t, 30.0, resp.Results[0].Duration)
	require.Len(t, resp.Results[0].Translations, 1)
	assert.Equal(t, env.artifacts.Path("clip.mp4", "French"), resp.Results[0].Translations[0].SRTLink)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/translations/clip.mp4", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	byLang := decode[map[string]translationEntry](t, rec)
	require.Contains(t, byLang, "French")
	assert.Equal(t, "Bonjour\nMonde", byLang["French"].Translation)
	assert.Equal(t, env.artifacts.Path("clip.mp4", "French"), byLang["French"].SRTLink)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/download_srt/clip.mp4/French", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-subrip", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "clip_French.srt")

	track, err := subtitle.ReadSRTBytes(rec.Body.Bytes(), "clip_French.srt")
	require.NoError(t, err)
	require.Len(t, track.Lines, 2)
	assert.Equal(t, "Monde", track.Lines[1].Text)
}

func TestProcessVideo_EachLanguageValueIsOneLabel(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(uploadRequest(t, map[string]string{"clip.mp4": "video"}, "French", " Klingon ", "Chinese (Traditional, Taiwan)"))
	require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())

	resp := decode[processResponse](t, rec)
	assert.Equal(t, "processing completed with errors", resp.Message)
	require.Len(t, resp.Results, 1)
	tr := resp.Results[0].Translations
	require.Len(t, tr, 3)
	assert.Empty(t, tr[0].Error)
	assert.Equal(t, "Klingon", tr[1].Language)
	assert.Equal(t, "translate", tr[1].Stage)
	assert.Equal(t, "unsupported language", tr[1].Error)
	assert.Equal(t, "Chinese (Traditional, Taiwan)", tr[2].Language)
	assert.Empty(t, tr[2].Error)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/translations", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]translationRecord](t, rec)
	require.Len(t, all, 2)
	assert.Equal(t, "French", all[0].Language)
	assert.Equal(t, "Chinese (Traditional, Taiwan)", all[1].Language)
	assert.FileExists(t, filepath.Join(env.artifacts.Dir, "clip_Chinese (Traditional, Taiwan).srt"))
}

func TestProcessVideo_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		req       func(t *testing.T) *http.Request
		wantError string
		wantFile  string
	}{
		{
			name: "disallowed extension",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, map[string]string{"notes.txt": "x"}, "French")
			},
			wantFile: "notes.txt",
		},
		{
			name: "no files",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, nil, "French")
			},
			wantError: "no files provided",
		},
		{
			name: "no languages",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, map[string]string{"clip.mp4": "x"}, " , ")
			},
			wantError: "no languages provided",
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/process_video", bytes.NewBufferString("{}"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			rec := env.do(tt.req(t))
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			resp := decode[processResponse](t, rec)
			assert.Equal(t, "validation", resp.Stage)
			assert.NotEmpty(t, resp.Error)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, resp.Error)
			}
			assert.Equal(t, tt.wantFile, resp.File)

			rec = env.do(httptest.NewRequest(http.MethodGet, "/translations", nil))
			assert.Equal(t, http.StatusNotFound, rec.Code)
		})
	}
}

func TestProcessVideo_FatalFailure(t *testing.T) {
	env := newTestEnv(t)
	env.transcode.probeErr = errors.New("ffprobe: invalid data found")

	rec := env.do(uploadRequest(t, map[string]string{"clip.mp4": "video"}, "French"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	resp := decode[processResponse](t, rec)
	assert.Equal(t, "probe", resp.Stage)
	assert.Equal(t, "clip.mp4", resp.File)
	assert.Equal(t, "ffprobe: invalid data found", resp.Error)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/translations/clip.mp4", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotFoundContracts(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		path    string
		wantMsg string
	}{
		{path: "/translations", wantMsg: "translation not found"},
		{path: "/translations/missing.mp4", wantMsg: "translation not found"},
		{path: "/download_srt/missing.mp4/French", wantMsg: "subtitle file not found"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := env.do(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, map[string]string{"error": tt.wantMsg}, decode[map[string]string](t, rec))
		})
	}
}

func TestListByVideo_LatestRunWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.store.Session(ctx)
	require.NoError(t, err)
	for _, text := range []string{"first", "second"} {
		_, err := sess.AppendTranslation(ctx, persistence.TranslationRecord{
			VideoName: "clip.mp4", Language: "French", Translation: text, ArtifactPath: "/out/clip_French.srt",
		})
		require.NoError(t, err)
	}
	require.NoError(t, sess.Close())

	rec := env.do(httptest.NewRequest(http.MethodGet, "/translations/clip.mp4", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "second", decode[map[string]translationEntry](t, rec)["French"].Translation)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/translations", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]translationRecord](t, rec), 2)
}

func TestHealthAndMethods(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = env.do(httptest.NewRequest(http.MethodDelete, "/translations", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_ServesSPAFromStaticDir(t *testing.T) {
	staticDir := filepath.Join(t.TempDir(), "web")
	require.NoError(t, os.MkdirAll(filepath.Join(staticDir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<html>spa</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "assets", "app.js"), []byte("console.log(1)"), 0o644))

	env := newTestEnv(t, WithUI(staticDir, true))

	for _, url := range []string{"/", "/videos/clip", "/missing.css"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, url, nil))
		assert.Equal(t, http.StatusOK, rec.Code, url)
		assert.Contains(t, rec.Body.String(), "spa", url)
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/assets/app.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "console.log")
}

func TestServer_ServesBundledUI(t *testing.T) {
	env := newTestEnv(t, WithUI(filepath.Join("..", "..", "web"), true))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "/process_video")
	assert.Contains(t, body, "/translations")
	assert.Contains(t, body, `name="videos"`)
}

func TestWithMaxUploadMemory(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  int64
	}{
		{name: "configured", bytes: 64 << 20, want: 64 << 20},
		{name: "zero keeps default", bytes: 0, want: defaultMaxUploadBytes},
		{name: "negative keeps default", bytes: -1, want: defaultMaxUploadBytes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, WithMaxUploadMemory(tt.bytes))
			assert.Equal(t, tt.want, env.server.maxMemory)
		})
	}

	// uploads beyond the in-memory limit still go through via temp files
	env := newTestEnv(t, WithMaxUploadMemory(1))
	rec := env.do(uploadRequest(t, map[string]string{"clip.mp4": "video"}, "French"))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestServer_UIDisabled(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
