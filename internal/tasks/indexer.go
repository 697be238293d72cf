package tasks

import "github.com/girlpunk/ytsm/internal/models"

// assignIndex resolves the playlist index for a new video.
//
// The remote position is used verbatim only when the subscription keeps
// stable absolute ordering AND the position is known AND no existing video
// already holds it. Every other case appends: 1 + max(existing index),
// which is 0 for an empty subscription. Uniqueness within the subscription
// follows from a single-subscription read-modify-write; no wider lock is
// needed.
func (e *Engine) assignIndex(sub *models.Subscription, remotePosition int) (int, error) {
	if !sub.RewritePlaylistIndices && remotePosition >= 0 {
		taken, err := e.videos.PlaylistIndexTaken(sub.ID, remotePosition)
		if err != nil {
			return 0, err
		}
		if !taken {
			return remotePosition, nil
		}
	}

	max, err := e.videos.MaxPlaylistIndex(sub.ID)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}
