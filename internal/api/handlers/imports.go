package handlers

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dvloznov/household-budget/internal/api/middleware"
	"github.com/dvloznov/household-budget/internal/budget"
	"github.com/dvloznov/household-budget/internal/importer"
	"github.com/dvloznov/household-budget/internal/logger"
	"github.com/dvloznov/household-budget/internal/reconcile"
	"github.com/dvloznov/household-budget/internal/session"
)

// maxUploadBytes caps a multipart import.
const maxUploadBytes = 32 << 20

// ImportsHandler handles the staged import flow: upload, resolve each
// conflict, then commit or discard.
type ImportsHandler struct {
	svc      *budget.Service
	sessions *session.Manager
}

// NewImportsHandler creates a new imports handler.
func NewImportsHandler(svc *budget.Service, sessions *session.Manager) *ImportsHandler {
	return &ImportsHandler{svc: svc, sessions: sessions}
}

// importState is the response for every step of the flow.
type importState struct {
	SessionID string                 `json:"session_id"`
	Summary   *session.ImportSummary `json:"summary,omitempty"`
	Pending   int                    `json:"pending"`
	Conflict  *Conflict              `json:"conflict,omitempty"`
}

func (h *ImportsHandler) state(sess *session.Session) importState {
	st := importState{SessionID: sess.ID, Summary: sess.Import}
	if sess.HasPendingImport() {
		st.Pending = sess.Queue.Pending()
		if c, err := h.svc.CurrentConflict(sess); err == nil {
			st.Conflict = toConflict(c)
		}
	}
	return st
}

func parseUpload(fh *multipart.FileHeader) importer.FileResult {
	f, err := fh.Open()
	if err != nil {
		return importer.FileResult{Name: fh.Filename, Err: err}
	}
	defer f.Close()

	res, err := importer.ParseCSV(fh.Filename, f)
	if err != nil {
		res.Name = fh.Filename
		res.Err = err
	}
	return res
}

// CreateImport handles POST /api/imports. It accepts either a multipart
// form with one or more "files", or JSON {"uris": [...]} naming local paths
// or gs:// objects.
func (h *ImportsHandler) CreateImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	sess := h.sessions.Create()

	var (
		sum session.ImportSummary
		err error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			_ = h.sessions.Delete(sess.ID)
			middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart upload")
			return
		}
		uploads := r.MultipartForm.File["files"]
		if len(uploads) == 0 {
			_ = h.sessions.Delete(sess.ID)
			middleware.WriteError(w, http.StatusBadRequest, "At least one file is required")
			return
		}
		files := make([]importer.FileResult, 0, len(uploads))
		for _, fh := range uploads {
			files = append(files, parseUpload(fh))
		}
		sum, err = h.svc.Import(ctx, sess, files)
	} else {
		var req struct {
			URIs []string `json:"uris"`
		}
		if !decodeJSON(w, r, &req) {
			_ = h.sessions.Delete(sess.ID)
			return
		}
		if len(req.URIs) == 0 {
			_ = h.sessions.Delete(sess.ID)
			middleware.WriteError(w, http.StatusBadRequest, "uris are required")
			return
		}
		sum, err = h.svc.ImportURIs(ctx, sess, req.URIs)
	}
	if err != nil {
		_ = h.sessions.Delete(sess.ID)
		writeServiceError(w, r, "Failed to stage import", err)
		return
	}

	log.Info().
		Str("session_id", sess.ID).
		Int("files", len(sum.Files)).
		Int("conflicts", sum.Conflicts).
		Msg("Import session created")
	middleware.WriteJSON(w, http.StatusCreated, h.state(sess))
}

func (h *ImportsHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, "Unknown import session", err)
		return nil, false
	}
	return sess, true
}

// GetImport handles GET /api/imports/{id}
func (h *ImportsHandler) GetImport(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, h.state(sess))
}

// ResolveConflict handles POST /api/imports/{id}/resolve
func (h *ImportsHandler) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Disposition string `json:"disposition"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := reconcile.ParseDisposition(req.Disposition)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.svc.Resolve(r.Context(), sess, d); err != nil {
		writeServiceError(w, r, "Failed to resolve conflict", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, h.state(sess))
}

// CommitImport handles POST /api/imports/{id}/commit
func (h *ImportsHandler) CommitImport(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	res, err := h.svc.Commit(r.Context(), sess)
	if err != nil {
		// The ledger changed in memory even when the write failed; the
		// session is finished either way unless the queue was not drained.
		if !sess.HasPendingImport() {
			_ = h.sessions.Delete(sess.ID)
		}
		writeServiceError(w, r, "Failed to commit import", err)
		return
	}
	_ = h.sessions.Delete(sess.ID)
	middleware.WriteJSON(w, http.StatusOK, res)
}

// DiscardImport handles DELETE /api/imports/{id}
func (h *ImportsHandler) DiscardImport(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.svc.DiscardImport(r.Context(), sess)
	_ = h.sessions.Delete(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}
