package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/girlpunk/ytsm/internal/models"
	"github.com/girlpunk/ytsm/internal/providers"
	"github.com/girlpunk/ytsm/internal/repositories"
	"github.com/girlpunk/ytsm/internal/shared"
	"github.com/girlpunk/ytsm/internal/tasks"
)

// APIHandler serves the JSON management API. Mutating sync work is pushed
// onto the queue rather than run inline so requests return quickly.
type APIHandler struct {
	users    *repositories.UserRepository
	folders  *repositories.FolderRepository
	subs     *repositories.SubscriptionRepository
	videos   *repositories.VideoRepository
	registry *providers.Registry
	engine   *tasks.Engine
	queue    *tasks.Queue
	logger   *log.Logger

	// defaultUser is the username assumed when a request carries no
	// explicit user parameter.
	defaultUser string
}

// NewAPIHandler creates the API handler.
func NewAPIHandler(
	users *repositories.UserRepository,
	folders *repositories.FolderRepository,
	subs *repositories.SubscriptionRepository,
	videos *repositories.VideoRepository,
	registry *providers.Registry,
	engine *tasks.Engine,
	queue *tasks.Queue,
	defaultUser string,
	logger *log.Logger,
) *APIHandler {
	return &APIHandler{
		users:       users,
		folders:     folders,
		subs:        subs,
		videos:      videos,
		registry:    registry,
		engine:      engine,
		queue:       queue,
		defaultUser: defaultUser,
		logger:      logger,
	}
}

// Routes returns the path patterns this handler serves.
func (h *APIHandler) Routes() []string {
	return []string{
		"GET /api/subscriptions",
		"POST /api/subscriptions",
		"GET /api/subscriptions/{id}",
		"PUT /api/subscriptions/{id}",
		"DELETE /api/subscriptions/{id}",
		"GET /api/subscriptions/{id}/videos",
		"POST /api/subscriptions/{id}/sync",
		"GET /api/folders",
		"POST /api/folders",
		"PUT /api/folders/{id}",
		"DELETE /api/folders/{id}",
		"POST /api/folders/{id}/sync",
		"POST /api/sync",
		"POST /api/videos/{id}/watch",
		"POST /api/videos/{id}/unwatch",
		"POST /api/videos/{id}/download",
		"DELETE /api/videos/{id}/files",
		"POST /api/notifications/{video}",
	}
}

// ServeHTTP dispatches on the method and path registered in [Routes].
func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/subscriptions":
		h.listSubscriptions(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/api/subscriptions":
		h.createSubscription(w, r)
	case r.Method == http.MethodGet && r.PathValue("id") != "" && pathTail(r) == "videos":
		h.listVideos(w, r)
	case r.Method == http.MethodPost && r.PathValue("id") != "" && pathTail(r) == "sync" && pathRoot(r) == "subscriptions":
		h.syncSubscription(w, r)
	case r.Method == http.MethodGet && pathRoot(r) == "subscriptions":
		h.getSubscription(w, r)
	case r.Method == http.MethodPut && pathRoot(r) == "subscriptions":
		h.updateSubscription(w, r)
	case r.Method == http.MethodDelete && pathRoot(r) == "subscriptions":
		h.deleteSubscription(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/api/folders":
		h.listFolders(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/api/folders":
		h.createFolder(w, r)
	case r.Method == http.MethodPost && pathTail(r) == "sync" && pathRoot(r) == "folders":
		h.syncFolder(w, r)
	case r.Method == http.MethodPut && pathRoot(r) == "folders":
		h.updateFolder(w, r)
	case r.Method == http.MethodDelete && pathRoot(r) == "folders":
		h.deleteFolder(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/api/sync":
		h.syncAll(w, r)
	case r.Method == http.MethodPost && pathRoot(r) == "videos":
		h.videoAction(w, r)
	case r.Method == http.MethodDelete && pathRoot(r) == "videos" && pathTail(r) == "files":
		h.videoAction(w, r)
	case r.Method == http.MethodPost && pathRoot(r) == "notifications":
		h.pushNotification(w, r)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown route"))
	}
}

func (h *APIHandler) user(r *http.Request) (*models.User, error) {
	username := r.URL.Query().Get("user")
	if username == "" {
		username = h.defaultUser
	}
	return h.users.GetByUsername(username)
}

func (h *APIHandler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	user, err := h.user(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var subs []*models.Subscription
	if folderID := r.URL.Query().Get("folder"); folderID != "" {
		subs, err = h.subs.ListByFolder(folderID)
	} else {
		subs, err = h.subs.ListByUser(user.ID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

type createSubscriptionRequest struct {
	URL            string  `json:"url"`
	ParentFolderID *string `json:"parent_folder_id"`
}

func (h *APIHandler) createSubscription(w http.ResponseWriter, r *http.Request) {
	user, err := h.user(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req createSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	provider, err := h.registry.ForURL(req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sub := &models.Subscription{
		ID:             shared.GenerateID(),
		UserID:         user.ID,
		ParentFolderID: req.ParentFolderID,
	}
	if err := provider.FillSubscription(r.Context(), req.URL, sub); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	if existing, err := h.subs.GetByPlaylistID(sub.Provider, sub.PlaylistID); err == nil && existing != nil {
		writeError(w, http.StatusConflict, fmt.Errorf("%w: already subscribed", shared.ErrDuplicate))
		return
	}

	if err := h.subs.Create(sub); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.enqueueSync(sub.ID)
	writeJSON(w, http.StatusCreated, sub)
}

func (h *APIHandler) getSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subs.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

type updateSubscriptionRequest struct {
	Name           *string `json:"name"`
	ParentFolderID *string `json:"parent_folder_id"`
	AutoDownload   *bool   `json:"auto_download"`
	DownloadLimit  *int    `json:"download_limit"`
	DownloadOrder  *string `json:"download_order"`
	DeleteWatched  *bool   `json:"delete_watched"`
}

func (h *APIHandler) updateSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subs.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var req updateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if req.Name != nil {
		sub.Name = *req.Name
	}
	if req.ParentFolderID != nil {
		if *req.ParentFolderID == "" {
			sub.ParentFolderID = nil
		} else {
			sub.ParentFolderID = req.ParentFolderID
		}
	}
	if req.AutoDownload != nil {
		sub.AutoDownload = req.AutoDownload
	}
	if req.DownloadLimit != nil {
		sub.DownloadLimit = req.DownloadLimit
	}
	if req.DownloadOrder != nil {
		order, err := models.ParseVideoOrder(*req.DownloadOrder)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sub.DownloadOrder = &order
	}
	if req.DeleteWatched != nil {
		sub.DeleteWatched = req.DeleteWatched
	}

	if err := h.subs.Update(sub); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *APIHandler) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	if err := h.subs.Delete(r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) listVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.videos.ListBySubscription(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

func (h *APIHandler) syncSubscription(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.subs.Get(id); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	queued := h.enqueueSync(id)
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": queued})
}

func (h *APIHandler) listFolders(w http.ResponseWriter, r *http.Request) {
	user, err := h.user(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	folders, err := h.folders.ListByUser(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

type folderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id"`
}

func (h *APIHandler) createFolder(w http.ResponseWriter, r *http.Request) {
	user, err := h.user(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req folderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	folder := &models.SubscriptionFolder{
		ID:       shared.GenerateID(),
		Name:     req.Name,
		ParentID: req.ParentID,
		UserID:   user.ID,
	}
	if err := h.folders.Create(folder); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

func (h *APIHandler) updateFolder(w http.ResponseWriter, r *http.Request) {
	folder, err := h.folders.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var req folderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if req.Name != "" {
		folder.Name = req.Name
	}
	if req.ParentID != nil {
		if *req.ParentID == "" {
			folder.ParentID = nil
		} else {
			folder.ParentID = req.ParentID
		}
	}

	if err := h.folders.Update(folder); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

func (h *APIHandler) deleteFolder(w http.ResponseWriter, r *http.Request) {
	keep := r.URL.Query().Get("keep") == "true"
	if err := h.folders.Delete(r.PathValue("id"), keep); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) syncFolder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ids, err := h.folders.DescendantIDs(id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	queued := 0
	for _, folderID := range ids {
		subs, err := h.subs.ListByFolder(folderID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		for _, sub := range subs {
			if h.enqueueSync(sub.ID) {
				queued++
			}
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": queued})
}

func (h *APIHandler) syncAll(w http.ResponseWriter, r *http.Request) {
	user, err := h.user(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	subs, err := h.subs.ListForSync(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	queued := 0
	for _, sub := range subs {
		if h.enqueueSync(sub.ID) {
			queued++
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": queued})
}

func (h *APIHandler) videoAction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var err error
	switch pathTail(r) {
	case "watch":
		err = h.engine.MarkWatched(r.Context(), id)
	case "unwatch":
		err = h.engine.MarkUnwatched(r.Context(), id)
	case "download":
		err = h.engine.Download(r.Context(), id)
	case "files":
		err = h.engine.DeleteFiles(r.Context(), id)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown video action"))
		return
	}
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type pushNotificationRequest struct {
	SubscriptionID string `json:"subscription_id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Thumbnail      string `json:"thumbnail"`
	PublishDate    string `json:"publish_date"`
}

// pushNotification feeds a single announced video into the reconciler so
// subscribers see it without waiting for the next scheduled pass.
func (h *APIHandler) pushNotification(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("video")

	var req pushNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.SubscriptionID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("subscription_id is required"))
		return
	}

	item := models.RemoteItem{
		ID:          videoID,
		Title:       req.Title,
		Description: req.Description,
		Thumbnail:   req.Thumbnail,
		Position:    -1,
	}
	if req.PublishDate != "" {
		if t, err := time.Parse(time.RFC3339, req.PublishDate); err == nil {
			item.PublishDate = t
		}
	}

	video, err := h.engine.ReconcileOne(r.Context(), req.SubscriptionID, item)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if video == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, video)
}

func (h *APIHandler) enqueueSync(subscriptionID string) bool {
	return h.queue.Enqueue(tasks.TaskSynchronize, subscriptionID, func(ctx context.Context) error {
		return h.engine.Synchronize(ctx, subscriptionID)
	})
}

// pathRoot returns the first path segment after /api/.
func pathRoot(r *http.Request) string {
	rest := strings.TrimPrefix(r.URL.Path, "/api/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i]
	}
	return rest
}

// pathTail returns the final path segment.
func pathTail(r *http.Request) string {
	path := strings.TrimSuffix(r.URL.Path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrFolderCycle), errors.Is(err, shared.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
