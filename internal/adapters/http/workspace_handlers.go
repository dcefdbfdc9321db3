package httpadapter

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/kirillkom/study-workspace/internal/core/domain"
)

type viewResponse struct {
	View    domain.View      `json:"view"`
	Pending *pendingResponse `json:"pending,omitempty"`
}

type pendingResponse struct {
	Filename   string `json:"filename"`
	Size       int64  `json:"size"`
	Uploading  bool   `json:"uploading"`
	PreviewURL string `json:"preview_url"`
}

const previewPath = "/v1/workspace/preview"

func toPendingResponse(p domain.PendingUpload) *pendingResponse {
	return &pendingResponse{
		Filename:   p.File.Name,
		Size:       p.File.Size(),
		Uploading:  p.Uploading,
		PreviewURL: previewPath + "?h=" + p.Preview.ID,
	}
}

func (rt *Router) viewResponse(view domain.View) viewResponse {
	resp := viewResponse{View: view}
	if pending, ok := rt.workspace.Pending(); ok && view.Page == domain.PageUpload {
		resp.Pending = toPendingResponse(pending)
	}
	return resp
}

func (rt *Router) getView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.viewResponse(rt.views.View()))
}

func (rt *Router) navigate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Route string `json:"route"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		rt.fail(w, r, err)
		return
	}
	view, err := rt.views.Navigate(domain.Route(req.Route))
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.viewResponse(view))
}

func (rt *Router) getSelection(w http.ResponseWriter, r *http.Request) {
	pending, ok := rt.workspace.Pending()
	if !ok {
		writeError(w, r, http.StatusNotFound, "no file selected")
		return
	}
	writeJSON(w, http.StatusOK, toPendingResponse(pending))
}

func (rt *Router) selectFile(w http.ResponseWriter, r *http.Request) {
	limit := rt.opts.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", limit))
			return
		}
		writeError(w, r, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "read uploaded file")
		return
	}

	pending, err := rt.workspace.Select(r.Context(), domain.SelectedFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPendingResponse(pending))
}

func (rt *Router) cancelSelection(w http.ResponseWriter, r *http.Request) {
	if err := rt.workspace.CancelSelection(r.Context()); err != nil {
		rt.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) streamPreview(w http.ResponseWriter, r *http.Request) {
	handle, ok := rt.workspace.Preview()
	if !ok {
		writeError(w, r, http.StatusNotFound, "no preview available")
		return
	}
	if requested := r.URL.Query().Get("h"); requested != "" && requested != handle.ID {
		writeError(w, r, http.StatusGone, "preview handle was released")
		return
	}

	content, err := rt.previews.Open(r.Context(), handle)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	defer content.Close()

	name := "document.pdf"
	if pending, ok := rt.workspace.Pending(); ok && pending.File.Name != "" {
		name = pending.File.Name
	} else if view := rt.views.View(); view.Filename != "" {
		name = view.Filename
	}
	if handle.ContentType != "" {
		w.Header().Set("Content-Type", handle.ContentType)
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": name}))
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, strings.ReplaceAll(name, "/", "_"), handle.AcquiredAt, content)
}

func (rt *Router) upload(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.workspace.Upload(r.Context())
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"document": doc,
		"view":     rt.views.View(),
	})
}

func (rt *Router) reset(w http.ResponseWriter, r *http.Request) {
	if err := rt.workspace.Reset(r.Context()); err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.viewResponse(rt.views.View()))
}
