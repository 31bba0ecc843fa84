package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"contentops/internal/orchestrator"
	"contentops/internal/output"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) error {
	outputs, err := s.orch.Store().StatusCounts(r.Context())
	if err != nil {
		return err
	}
	status := Status{Outputs: make(map[string]int), Jobs: make(map[string]int)}
	for st, n := range outputs {
		status.Outputs[string(st)] = n
	}
	if s.jobs != nil {
		jobs, err := s.jobs.Counts(r.Context())
		if err != nil {
			return err
		}
		for st, n := range jobs {
			status.Jobs[string(st)] = n
		}
	}
	if s.workers != nil {
		ws := s.workers.Status()
		status.Workers = &WorkerStatus{Running: ws.Running, Lanes: ws.Lanes, Handled: ws.Handled, LastError: ws.LastErr}
	}
	writeJSON(w, s.logger, http.StatusOK, status)
	return nil
}

func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request) error {
	var req articleRequest
	if err := decodeJSON(r, &req, false); err != nil {
		return err
	}
	a, err := s.orch.CreateArticle(r.Context(), orchestrator.ArticleRequest{
		OrganizationID: req.OrganizationID,
		Title:          req.Title,
		Body:           req.Body,
		HTML:           req.HTML,
		Category:       req.Category,
		SourceURL:      req.SourceURL,
	})
	if err != nil {
		return err
	}
	writeJSON(w, s.logger, http.StatusCreated, fromArticle(a))
	return nil
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) error {
	a, err := s.orch.GetArticle(r.Context(), r.URL.Query().Get("organization_id"), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	writeJSON(w, s.logger, http.StatusOK, fromArticle(a))
	return nil
}

func (s *Server) handleCreateSubmission(w http.ResponseWriter, r *http.Request) error {
	var req submissionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		return err
	}
	created, err := s.orch.CreateSubmission(r.Context(), orchestrator.CreateRequest{
		ArticleID:      chi.URLParam(r, "id"),
		OrganizationID: req.OrganizationID,
		Languages:      req.Languages,
		Flags:          req.FlagOptions,
	})
	if len(created) == 0 && err != nil {
		return err
	}
	// Submissions exist even when some first jobs could not be queued; the
	// pending sweep dispatches those later.
	body := make([]Submission, 0, len(created))
	for _, sub := range created {
		body = append(body, fromSubmission(sub))
	}
	writeJSON(w, s.logger, http.StatusCreated, map[string]any{"submissions": body})
	return nil
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) error {
	view, err := s.orch.GetSubmission(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	writeJSON(w, s.logger, http.StatusOK, fromSubmissionView(view))
	return nil
}

func (s *Server) handleGetOutput(w http.ResponseWriter, r *http.Request) error {
	out, err := s.orch.GetOutput(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	return s.writeOutput(w, r, http.StatusOK, out)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) error {
	var c output.Customization
	if err := decodeJSON(r, &c, true); err != nil {
		return err
	}
	out, err := s.orch.TriggerMediaGeneration(r.Context(), chi.URLParam(r, "id"), c)
	if err != nil {
		return err
	}
	return s.writeOutput(w, r, http.StatusAccepted, out)
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) error {
	var c *output.Customization
	if err := decodeJSON(r, &c, true); err != nil {
		return err
	}
	out, err := s.orch.RegenerateMedia(r.Context(), chi.URLParam(r, "id"), c)
	if err != nil {
		return err
	}
	return s.writeOutput(w, r, http.StatusAccepted, out)
}

func (s *Server) handleEditScript(w http.ResponseWriter, r *http.Request) error {
	var req scriptRequest
	if err := decodeJSON(r, &req, false); err != nil {
		return err
	}
	out, err := s.orch.EditScript(r.Context(), chi.URLParam(r, "id"), req.Script)
	if err != nil {
		return err
	}
	return s.writeOutput(w, r, http.StatusOK, out)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) error {
	out, err := s.orch.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	return s.writeOutput(w, r, http.StatusOK, out)
}

func (s *Server) handleUnapprove(w http.ResponseWriter, r *http.Request) error {
	out, err := s.orch.Unapprove(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	return s.writeOutput(w, r, http.StatusOK, out)
}

func (s *Server) handleAttachTag(w http.ResponseWriter, r *http.Request) error {
	var req tagRequest
	if err := decodeJSON(r, &req, false); err != nil {
		return err
	}
	tag, err := s.orch.AttachTag(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		return err
	}
	writeJSON(w, s.logger, http.StatusCreated, Tag{ID: tag.ID, Name: tag.Name})
	return nil
}

func (s *Server) handleCreateVideo(w http.ResponseWriter, r *http.Request) error {
	var req videoRequest
	if err := decodeJSON(r, &req, false); err != nil {
		return err
	}
	out, err := s.orch.CreateStandaloneVideo(r.Context(), orchestrator.StandaloneVideoRequest{
		OrganizationID: req.OrganizationID,
		Title:          req.Title,
		Script:         req.Script,
		Customization:  req.Customization,
	})
	if err != nil {
		return err
	}
	return s.writeOutput(w, r, http.StatusAccepted, out)
}

func (s *Server) writeOutput(w http.ResponseWriter, r *http.Request, status int, out *output.Output) error {
	tags, err := s.orch.Store().ListOutputTags(r.Context(), out.ID)
	if err != nil {
		return err
	}
	writeJSON(w, s.logger, status, fromOutput(out, tags))
	return nil
}
