package storage

import (
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	folderDisallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
	folderSpaces     = regexp.MustCompile(`\s+`)
	folderDashes     = regexp.MustCompile(`-+`)
)

// GenerateFileName generates a new file name based on the file extension
// It creates a UUID-based filename with the provided extension
func GenerateFileName(extension string) string {
	newUUID := uuid.New().String()
	// Ensure extension starts with a dot if it doesn't already
	if extension != "" && extension[0] != '.' {
		return newUUID + "." + strings.ToLower(extension)
	}
	return newUUID + strings.ToLower(extension)
}

// SanitizeFolder turns a course or lesson title into a path segment:
// "Captain's Big Day!" becomes "captains-big-day"
func SanitizeFolder(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = folderDisallowed.ReplaceAllString(s, "")
	s = folderSpaces.ReplaceAllString(s, "-")
	s = folderDashes.ReplaceAllString(s, "-")
	return s
}

// LessonFolder returns the upload folder of a lesson
func LessonFolder(courseTitle, lessonTitle, lessonID string) string {
	return SanitizeFolder(courseTitle) + "-" + SanitizeFolder(lessonTitle) + "-" + lessonID
}

// UploadPath returns {lesson folder}/{uuid}{ext}
func UploadPath(courseTitle, lessonTitle, lessonID, extension string) string {
	return path.Join(LessonFolder(courseTitle, lessonTitle, lessonID), GenerateFileName(extension))
}

// WelcomeAudioPath returns the object path of a learner's welcome narration
func WelcomeAudioPath(learnerID, who string) string {
	return "audio/welcome/" + learnerID + "-" + who + ".mp3"
}

// IsAllowedContentType reports whether a media upload of this type is accepted
func IsAllowedContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return strings.HasPrefix(ct, "video/") ||
		strings.HasPrefix(ct, "audio/") ||
		strings.HasPrefix(ct, "image/")
}
