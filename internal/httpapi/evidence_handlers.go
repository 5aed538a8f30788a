package httpapi

import (
	"archive/zip"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/nyx-testnet/nyx-gateway/internal/evidence"
	"github.com/nyx-testnet/nyx-gateway/internal/exportauth"
	"github.com/nyx-testnet/nyx-gateway/internal/gwerrors"
)

func (s *Server) registerEvidenceRoutes(r *mux.Router) {
	r.HandleFunc("/evidence", s.handleEvidenceGet).Methods(http.MethodGet)
	r.HandleFunc("/evidence/v1/replay", s.handleEvidenceReplay).Methods(http.MethodPost)
	r.HandleFunc("/evidence/v1/export_token", s.handleEvidenceExportToken).Methods(http.MethodPost)
	r.HandleFunc("/artifact", s.handleEvidenceArtifact).Methods(http.MethodGet)
	r.HandleFunc("/export.zip", s.handleEvidenceExportZip).Methods(http.MethodGet)
	r.HandleFunc("/proof.zip", s.handleEvidenceExportZip).Methods(http.MethodGet)
	r.HandleFunc("/list", s.handleEvidenceList).Methods(http.MethodGet)
}

func (s *Server) handleEvidenceGet(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		writeError(w, gwerrors.New(gwerrors.ParamRequired, "run_id required"))
		return
	}
	run, err := s.store.GetEvidenceRunByID(r.Context(), runID)
	if err != nil {
		writeError(w, gwerrors.New(gwerrors.ParamInvalid, "run not found"))
		return
	}
	receipts, err := s.store.ListReceiptsByRun(r.Context(), runID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": run, "receipts": receipts})
}

// handleEvidenceReplay re-verifies a recorded run against its artifacts via
// the configured ProofEngine; operational tooling authenticates with the
// short-lived export bearer rather than an interactive portal session,
// since replay checks run outside any single account's browsing context.
func (s *Server) handleEvidenceReplay(w http.ResponseWriter, r *http.Request) {
	if _, err := s.requireExportBearer(r); err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		RunID string `json:"run_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RunID == "" {
		writeError(w, gwerrors.New(gwerrors.ParamRequired, "run_id required"))
		return
	}
	ok, err := s.exec.Proof.ReplayVerifyRun(r.Context(), body.RunID, s.cfg.RunRoot)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_id": body.RunID, "replay_ok": ok})
}

// handleEvidenceExportToken mints the bearer used by /export.zip, /proof.zip
// and /evidence/v1/replay; spec.md names the sealed-export surface but not
// how its bearer is obtained, so an authenticated portal session is the
// decided prerequisite for minting one.
func (s *Server) handleEvidenceExportToken(w http.ResponseWriter, r *http.Request) {
	id, _, err := s.session(r.Context(), r)
	if err != nil {
		writeError(w, err)
		return
	}
	token, expiresAt, err := exportauth.Mint(s.cfg, id.AccountID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"export_token": token, "expires_at": expiresAt.Unix()})
}

func (s *Server) requireExportBearer(r *http.Request) (string, error) {
	token := bearerToken(r)
	if token == "" {
		return "", gwerrors.New(gwerrors.AuthRequired, "export bearer required")
	}
	return exportauth.Verify(s.cfg, token)
}

func (s *Server) handleEvidenceArtifact(w http.ResponseWriter, r *http.Request) {
	if _, err := s.requireExportBearer(r); err != nil {
		writeError(w, err)
		return
	}
	runID := r.URL.Query().Get("run_id")
	relPath := r.URL.Query().Get("path")
	if runID == "" || relPath == "" {
		writeError(w, gwerrors.New(gwerrors.ParamRequired, "run_id and path required"))
		return
	}
	runDir := filepath.Join(s.cfg.RunRoot, runID)
	full, err := evidence.SafeArtifactPath(runDir, relPath)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := os.Stat(full); err != nil {
		writeError(w, gwerrors.New(gwerrors.ParamInvalid, "artifact not found"))
		return
	}
	http.ServeFile(w, r, full)
}

// handleEvidenceExportZip bundles a run directory (or every run under an
// account's prefix) plus a manifest into a zip stream. LocalEngine never
// materializes run_id.txt/evidence.json/artifacts on disk, so an absent
// run directory yields an empty-but-valid archive rather than an error —
// a real ProofEngine deployment populates RunRoot.
func (s *Server) handleEvidenceExportZip(w http.ResponseWriter, r *http.Request) {
	accountID, err := s.requireExportBearer(r)
	if err != nil {
		writeError(w, err)
		return
	}
	prefix := r.URL.Query().Get("prefix")
	runIDs, err := listRunDirs(s.cfg.RunRoot, prefix)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", "attachment; filename=export.zip")
	zw := zip.NewWriter(w)
	defer zw.Close()

	manifest := map[string]any{
		"kind": "evidence_export", "version": 1,
		"account_id": accountID, "prefix": prefix, "runs": runIDs,
	}
	manifestBytes, err := json.MarshalIndent(manifest, "", "  ")
	if err == nil {
		if mw, werr := zw.Create("manifest.json"); werr == nil {
			mw.Write(manifestBytes)
		}
	}

	for _, runID := range runIDs {
		runDir := filepath.Join(s.cfg.RunRoot, runID)
		filepath.Walk(runDir, func(path string, info os.FileInfo, walkErr error) error {
			if walkErr != nil || info.IsDir() {
				return nil
			}
			rel, relErr := filepath.Rel(s.cfg.RunRoot, path)
			if relErr != nil {
				return nil
			}
			fw, createErr := zw.Create(rel)
			if createErr != nil {
				return nil
			}
			f, openErr := os.Open(path)
			if openErr != nil {
				return nil
			}
			defer f.Close()
			io.Copy(fw, f)
			return nil
		})
	}
}

func (s *Server) handleEvidenceList(w http.ResponseWriter, r *http.Request) {
	accountID, err := s.requireExportBearer(r)
	if err != nil {
		writeError(w, err)
		return
	}
	prefix := r.URL.Query().Get("prefix")
	runIDs, err := listRunDirs(s.cfg.RunRoot, prefix)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account_id": accountID, "prefix": prefix, "runs": runIDs})
}

func listRunDirs(runRoot, prefix string) ([]string, error) {
	entries, err := os.ReadDir(runRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	var runIDs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if prefix != "" && !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		runIDs = append(runIDs, entry.Name())
	}
	return runIDs, nil
}
