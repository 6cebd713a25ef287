package api

import "net/http"

func (r *Router) handleMaintenanceStatus(w http.ResponseWriter, req *http.Request) {
	st, err := r.maintenance.Status(req.Context())
	if err != nil {
		r.logger.Error("reading maintenance status", "error", err)
		writeError(w, req, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (r *Router) handleMaintenanceRun(w http.ResponseWriter, req *http.Request) {
	res, err := r.maintenance.Run(req.Context())
	if err != nil {
		r.logger.Error("running maintenance", "error", err)
		writeError(w, req, http.StatusInternalServerError, "maintenance failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (r *Router) handleListBackups(w http.ResponseWriter, req *http.Request) {
	list, err := r.backups.List()
	if err != nil {
		r.logger.Error("listing backups", "error", err)
		writeError(w, req, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleCreateBackup snapshots the database now, then applies retention.
func (r *Router) handleCreateBackup(w http.ResponseWriter, req *http.Request) {
	info, err := r.backups.Backup(req.Context())
	if err != nil {
		r.logger.Error("creating backup", "error", err)
		writeError(w, req, http.StatusInternalServerError, "backup failed")
		return
	}
	if _, err := r.backups.Prune(); err != nil {
		r.logger.Warn("pruning backups", "error", err)
	}
	writeJSON(w, http.StatusCreated, info)
}
