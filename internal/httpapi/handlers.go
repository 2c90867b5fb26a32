package httpapi

import (
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MimeLyc/media-subtitle-translator/internal/artifact"
	"github.com/MimeLyc/media-subtitle-translator/internal/pipeline"
	"github.com/MimeLyc/media-subtitle-translator/pkg/log"
)

const (
	msgTranslationNotFound = "translation not found"
	msgSubtitleNotFound    = "subtitle file not found"
)

type translationEntry struct {
	Translation string `json:"translation"`
	SRTLink     string `json:"srt_link"`
}

type translationRecord struct {
	VideoName   string `json:"video_name"`
	Language    string `json:"language"`
	Translation string `json:"translation"`
	SRTLink     string `json:"srt_link"`
}

type languageResult struct {
	Language string `json:"language"`
	SRTLink  string `json:"srt_link,omitempty"`
	Stage    string `json:"stage,omitempty"`
	Error    string `json:"error,omitempty"`
}

type fileResult struct {
	VideoName    string           `json:"video_name"`
	Duration     float64          `json:"duration"`
	Translations []languageResult `json:"translations"`
}

type processResponse struct {
	Message string       `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
	Stage   string       `json:"stage,omitempty"`
	File    string       `json:"file,omitempty"`
	Results []fileResult `json:"results,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleProcessVideo(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, processResponse{
			Error: "invalid multipart form: " + err.Error(),
			Stage: string(pipeline.StageValidation),
		})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["videos"]
	languages := pipeline.ParseLanguages(r.MultipartForm.Value["languages"]...)
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, processResponse{Error: "no files provided", Stage: string(pipeline.StageValidation)})
		return
	}
	if len(languages) == 0 {
		writeJSON(w, http.StatusBadRequest, processResponse{Error: "no languages provided", Stage: string(pipeline.StageValidation)})
		return
	}

	jobs := make([]pipeline.Job, 0, len(headers))
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, processResponse{
				Error: err.Error(),
				Stage: string(pipeline.StageUpload),
				File:  header.Filename,
			})
			return
		}
		opened = append(opened, f)
		jobs = append(jobs, pipeline.Job{
			VideoName: header.Filename,
			Content:   f,
			Languages: languages,
		})
	}

	sess, err := s.store.Session(r.Context())
	if err != nil {
		log.Error("Failed to open store session: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer func() { _ = sess.Close() }()

	results, err := s.proc.AcceptAll(r.Context(), jobs, sess)
	if err != nil {
		resp := processResponse{Error: err.Error(), Results: toFileResults(results)}
		status := http.StatusInternalServerError
		if pErr, ok := pipeline.AsError(err); ok {
			resp.Stage = string(pErr.Stage)
			resp.File = pErr.File
			if pErr.Cause != nil {
				resp.Error = pErr.Cause.Error()
			}
			if pErr.Stage == pipeline.StageValidation {
				status = http.StatusBadRequest
			}
		}
		log.Error("Processing request failed: %v", err)
		writeJSON(w, status, resp)
		return
	}

	resp := processResponse{Message: "processing completed", Results: toFileResults(results)}
	status := http.StatusOK
	for _, res := range results {
		if res.Err() != nil {
			status = http.StatusMultiStatus
			resp.Message = "processing completed with errors"
			break
		}
	}
	writeJSON(w, status, resp)
}

func toFileResults(results []pipeline.FileResult) []fileResult {
	ret := make([]fileResult, 0, len(results))
	for _, res := range results {
		item := fileResult{
			VideoName:    res.VideoName,
			Duration:     res.Duration,
			Translations: make([]languageResult, 0, len(res.Outcomes)),
		}
		for _, o := range res.Outcomes {
			lr := languageResult{Language: o.Language, SRTLink: o.ArtifactPath}
			if o.Err != nil {
				lr.Error = o.Err.Error()
				if pErr, ok := pipeline.AsError(o.Err); ok {
					lr.Stage = string(pErr.Stage)
					if pErr.Cause != nil {
						lr.Error = pErr.Cause.Error()
					}
				}
			}
			item.Translations = append(item.Translations, lr)
		}
		ret = append(ret, item)
	}
	return ret
}

func (s *Server) handleListByVideo(w http.ResponseWriter, r *http.Request) {
	videoName := mux.Vars(r)["video_name"]

	sess, err := s.store.Session(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer func() { _ = sess.Close() }()

	records, err := sess.ListByVideo(r.Context(), videoName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(records) == 0 {
		writeError(w, http.StatusNotFound, msgTranslationNotFound)
		return
	}

	// records are ordered by id, so a repeated language keeps its latest run
	ret := make(map[string]translationEntry, len(records))
	for _, rec := range records {
		ret[rec.Language] = translationEntry{Translation: rec.Translation, SRTLink: rec.ArtifactPath}
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) handleListAll(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Session(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer func() { _ = sess.Close() }()

	records, err := sess.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(records) == 0 {
		writeError(w, http.StatusNotFound, msgTranslationNotFound)
		return
	}

	ret := make([]translationRecord, 0, len(records))
	for _, rec := range records {
		ret = append(ret, translationRecord{
			VideoName:   rec.VideoName,
			Language:    rec.Language,
			Translation: rec.Translation,
			SRTLink:     rec.ArtifactPath,
		})
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	videoName, lang := vars["video_name"], vars["language"]

	f, err := s.artifacts.Open(videoName, lang)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgSubtitleNotFound)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	name := s.artifacts.Name(videoName, lang)
	w.Header().Set("Content-Type", "application/x-subrip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
