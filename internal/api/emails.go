package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rbaliyan/webmail"
)

type composeRequest struct {
	Recipients string `json:"recipients"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}

type updateRequest struct {
	Read     *bool `json:"read"`
	Archived *bool `json:"archived"`
}

type exportResponse struct {
	Folder  string `json:"folder"`
	Count   int    `json:"count"`
	URI     string `json:"uri"`
	Created string `json:"created"`
}

func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	var req composeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON.")
		return
	}
	_, err := mailboxFrom(r.Context()).Compose(r.Context(), webmail.ComposeRequest{
		Recipients: req.Recipients,
		Subject:    req.Subject,
		Body:       req.Body,
	})
	if err != nil {
		var unknown *webmail.UnknownRecipientError
		var invalid *webmail.ValidationError
		switch {
		case errors.Is(err, webmail.ErrNoRecipients):
			respondError(w, http.StatusBadRequest, "At least one recipient required.")
		case errors.As(err, &unknown):
			respondError(w, http.StatusBadRequest, fmt.Sprintf("User with email %s does not exist.", unknown.Address))
		case errors.As(err, &invalid):
			respondError(w, http.StatusBadRequest, invalid.Message)
		default:
			s.respondInternal(w, r, "compose", err)
		}
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"message": "Email sent successfully."})
}

// handleFolderOrEntry serves GET /emails/{key}. A key in the store's id
// format is looked up as an entry. Anything else is listed as a folder, so
// an unknown name reports an invalid mailbox.
func (s *Server) handleFolderOrEntry(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	mb := mailboxFrom(r.Context())

	if !webmail.IsFolder(key) {
		e, err := mb.Get(r.Context(), key)
		switch {
		case errors.Is(err, webmail.ErrInvalidID):
			// not an id; fall through to the folder listing
		case webmail.IsNotFound(err):
			respondError(w, http.StatusNotFound, "Email not found.")
			return
		case err != nil:
			s.respondInternal(w, r, "get", err)
			return
		default:
			respondJSON(w, http.StatusOK, e.View())
			return
		}
	}

	opts, ok := pageOptions(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid pagination.")
		return
	}
	list, err := mb.List(r.Context(), key, opts)
	switch {
	case errors.Is(err, webmail.ErrInvalidFolder):
		respondError(w, http.StatusBadRequest, "Invalid mailbox.")
	case err != nil:
		s.respondInternal(w, r, "list", err)
	default:
		w.Header().Set("X-Total-Count", strconv.FormatInt(list.Total, 10))
		respondJSON(w, http.StatusOK, list.Views())
	}
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON.")
		return
	}
	err := mailboxFrom(r.Context()).Update(r.Context(), r.PathValue("id"), webmail.Flags{
		Read:     req.Read,
		Archived: req.Archived,
	})
	if webmail.IsNotFound(err) {
		respondError(w, http.StatusNotFound, "Email not found.")
		return
	}
	if err != nil {
		s.respondInternal(w, r, "update", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	res, err := mailboxFrom(r.Context()).Export(r.Context(), r.PathValue("folder"))
	switch {
	case errors.Is(err, webmail.ErrInvalidFolder):
		respondError(w, http.StatusBadRequest, "Invalid mailbox.")
	case errors.Is(err, webmail.ErrExportNotConfigured):
		respondError(w, http.StatusNotImplemented, "Export not configured.")
	case err != nil:
		s.respondInternal(w, r, "export", err)
	default:
		respondJSON(w, http.StatusCreated, exportResponse{
			Folder:  res.Folder.String(),
			Count:   res.Count,
			URI:     res.URI,
			Created: res.Created.Format(webmail.TimestampLayout),
		})
	}
}

// pageOptions reads ?limit= and ?offset=. Without a limit the whole folder
// is returned.
func pageOptions(r *http.Request) (webmail.ListOptions, bool) {
	var opts webmail.ListOptions
	q := r.URL.Query()
	for name, dst := range map[string]*int{"limit": &opts.Limit, "offset": &opts.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, false
		}
		*dst = n
	}
	return opts, true
}
