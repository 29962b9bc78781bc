package security

import (
	"slices"

	"vidscreen/internal/models"
)

// CanView reports whether user may fetch or stream the record. Admins see
// everything; everyone else is confined to their organization, and viewers
// additionally need ownership or a spot on the record's allow-lists.
func CanView(user models.Identity, video models.Video) bool {
	if user.IsAdmin() {
		return true
	}
	if video.Organization != user.Organization {
		return false
	}
	if video.OwnerID == user.UserID {
		return true
	}
	if user.Role == models.RoleViewer {
		return slices.Contains(video.AllowedUsers, user.UserID) ||
			slices.Contains(video.AllowedRoles, string(models.RoleViewer))
	}
	return true
}

// CanEdit reports whether user may update the record's metadata. Viewers are
// always refused; others must own the record unless they are admin.
func CanEdit(user models.Identity, video models.Video) bool {
	if user.Role == models.RoleViewer {
		return false
	}
	if user.IsAdmin() {
		return true
	}
	return video.OwnerID == user.UserID
}

// CanDelete reports whether user may delete the record and its file.
func CanDelete(user models.Identity, video models.Video) bool {
	if user.IsAdmin() {
		return true
	}
	return video.OwnerID == user.UserID
}
