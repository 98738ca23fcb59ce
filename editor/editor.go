// Package editor implements the post authoring session: draft state, cover
// image staging, tag selection, and submission against the platform API.
// A Session is single-user and lives for one editing session; it is safe for
// concurrent use but assumes a single logical actor.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Error taxonomy shared with the client package. The session reports all
// submission failures to the user uniformly; callers that need to distinguish
// can unwrap.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpload       = errors.New("upload error")
	ErrNetwork      = errors.New("network error")

	// ErrSubmitInFlight is returned when Submit is called while a previous
	// submission has not finished.
	ErrSubmitInFlight = errors.New("submission already in flight")
)

// Status is the lifecycle state requested at submission time.
type Status string

const (
	StatusDrafted   Status = "DRAFTED"
	StatusPublished Status = "PUBLISHED"
)

// Tag mirrors the platform's tag record.
type Tag struct {
	ID   uint   `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// File is a locally selected cover image, not yet uploaded.
type File struct {
	Name string
	MIME string
	Data []byte
}

// PostPayload is the request body for create and update calls.
type PostPayload struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags"`
	Image       string   `json:"image"` // empty string means "do not change"
	Status      string   `json:"status"`
	Description string   `json:"description,omitempty"`
	UserID      uint     `json:"user_id"`
}

// Post is the persisted record returned by the platform. Navigation uses the
// server-resolved slug and username, never client-guessed values.
type Post struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Image       string `json:"image"`
	Status      string `json:"status"`
	Tags        []Tag  `json:"tags"`
	User        struct {
		Username string `json:"username"`
	} `json:"user"`
}

// ImageUploader stores a staged file under the given folder and returns its
// public URL.
type ImageUploader interface {
	Upload(ctx context.Context, f File, folder string) (string, error)
}

// TagDirectory returns the full set of tags available on the platform.
type TagDirectory interface {
	Tags(ctx context.Context) ([]Tag, error)
}

// PostWriter persists drafts. Update is keyed by the post's stable slug.
type PostWriter interface {
	Create(ctx context.Context, p PostPayload) (Post, error)
	Update(ctx context.Context, slug string, p PostPayload) (Post, error)
}

// Notifier receives the single pending/success/failure lifecycle notification
// of a submission.
type Notifier interface {
	Pending(msg string)
	Succeeded(msg string)
	Failed(msg string)
}

// Navigator is invoked with the post's canonical path after a successful
// submission.
type Navigator interface {
	Navigate(path string)
}

// NotifierFunc adapts three funcs to Notifier. Any nil func is a no-op.
type NotifierFunc struct {
	OnPending   func(string)
	OnSucceeded func(string)
	OnFailed    func(string)
}

func (n NotifierFunc) Pending(msg string) {
	if n.OnPending != nil {
		n.OnPending(msg)
	}
}

func (n NotifierFunc) Succeeded(msg string) {
	if n.OnSucceeded != nil {
		n.OnSucceeded(msg)
	}
}

func (n NotifierFunc) Failed(msg string) {
	if n.OnFailed != nil {
		n.OnFailed(msg)
	}
}

// NavigatorFunc adapts a func to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// MaxTags is the cap on attached tags. The fifth selection is rejected and the
// submitted payload is truncated as a second line of defense.
const MaxTags = 4

// PostsFolder is the upload folder for cover images.
const PostsFolder = "posts"

// PreviewFactory turns a staged file into a preview reference plus a release
// func. The session guarantees release is called exactly once when the
// reference is replaced or discarded.
type PreviewFactory func(f File) (url string, release func())

// Options configures a new Session. Uploader, Directory and Writer are
// required; Notifier and Navigator default to no-ops.
type Options struct {
	Uploader  ImageUploader
	Directory TagDirectory
	Writer    PostWriter
	Notifier  Notifier
	Navigator Navigator

	// Initial draft values. For edit mode set IsEdit and Slug.
	Title       string
	Description string
	Content     string
	Image       string // already-persisted cover URL, edit mode only
	Tags        []Tag
	Slug        string
	IsEdit      bool
	UserID      uint

	// NavigateDelay is the UX grace period between the success notification
	// and navigation. Defaults to one second; set NoNavigateDelay in tests.
	NavigateDelay   time.Duration
	NoNavigateDelay bool

	// Preview controls local preview references for staged images.
	// Defaults to an in-memory reference with a no-op release.
	Preview PreviewFactory
}

type previewRef struct {
	url     string
	release func()
}

func (p *previewRef) close() {
	if p != nil && p.release != nil {
		p.release()
		p.release = nil
	}
}

// Session owns the in-memory draft of one post being authored or edited.
type Session struct {
	mu sync.Mutex

	uploader  ImageUploader
	directory TagDirectory
	writer    PostWriter
	notifier  Notifier
	navigator Navigator

	title       string
	description string
	content     string

	staged       *File       // locally selected cover image, pre-upload
	preview      *previewRef // local object reference, released on replace/discard
	initialImage string      // cover URL the session was initialized with

	attached   []Tag // draft tags, ordered, first is primary
	candidates []Tag // directory tags not attached at fetch time

	slug   string
	isEdit bool
	userID uint

	navigateDelay time.Duration
	previewFn     PreviewFactory

	inFlight bool
}

// NewSession builds a session and fetches the tag directory, pruning tags
// already attached to the initial draft. A directory failure leaves the
// candidate list empty and is returned alongside the usable session.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	if opts.Uploader == nil || opts.Directory == nil || opts.Writer == nil {
		return nil, fmt.Errorf("%w: uploader, directory and writer are required", ErrValidation)
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = NotifierFunc{}
	}
	navigator := opts.Navigator
	if navigator == nil {
		navigator = NavigatorFunc(func(string) {})
	}
	delay := opts.NavigateDelay
	if delay == 0 && !opts.NoNavigateDelay {
		delay = time.Second
	}
	previewFn := opts.Preview
	if previewFn == nil {
		previewFn = func(f File) (string, func()) {
			return "local:" + f.Name, func() {}
		}
	}

	s := &Session{
		uploader:      opts.Uploader,
		directory:     opts.Directory,
		writer:        opts.Writer,
		notifier:      notifier,
		navigator:     navigator,
		title:         opts.Title,
		description:   opts.Description,
		content:       opts.Content,
		initialImage:  opts.Image,
		attached:      append([]Tag(nil), opts.Tags...),
		slug:          opts.Slug,
		isEdit:        opts.IsEdit,
		userID:        opts.UserID,
		navigateDelay: delay,
		previewFn:     previewFn,
	}
	if opts.Image != "" {
		s.preview = &previewRef{url: opts.Image}
	}

	all, err := s.directory.Tags(ctx)
	if err != nil {
		return s, fmt.Errorf("fetch tag directory: %w", err)
	}
	attached := make(map[uint]bool, len(s.attached))
	for _, t := range s.attached {
		attached[t.ID] = true
	}
	for _, t := range all {
		if !attached[t.ID] {
			s.candidates = append(s.candidates, t)
		}
	}
	return s, nil
}

// SetTitle updates the draft title. No validation; submission gating decides.
func (s *Session) SetTitle(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = v
}

// SetDescription updates the draft description.
func (s *Session) SetDescription(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.description = v
}

// SetContent updates the draft markdown content.
func (s *Session) SetContent(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = v
}

// Title returns the current draft title.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// Description returns the current draft description.
func (s *Session) Description() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.description
}

// Content returns the current draft markdown content.
func (s *Session) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// SelectImage stages a cover image. Files whose MIME type is not image/* are
// silently ignored. The previous local preview reference, if any, is released.
// Size and aspect-ratio limits are advisory here; the upload boundary enforces
// them.
func (s *Session) SelectImage(f File) {
	if !strings.HasPrefix(f.MIME, "image/") {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preview.close()
	url, release := s.previewFn(f)
	staged := f
	s.staged = &staged
	s.preview = &previewRef{url: url, release: release}
}

// RemoveImage clears the staged file and the preview reference.
func (s *Session) RemoveImage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preview.close()
	s.staged = nil
	s.preview = nil
}

// PreviewURL returns the current preview reference: the persisted cover URL in
// edit mode, or a local reference for a newly staged file. Empty when no image.
func (s *Session) PreviewURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview == nil {
		return ""
	}
	return s.preview.url
}

// SelectTag moves a tag from the candidate list to the attached list. The
// fifth selection and duplicate IDs are rejected so the cap stays visible in
// state rather than surfacing as silent truncation at submit time.
func (s *Session) SelectTag(tag Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.attached) >= MaxTags {
		return fmt.Errorf("%w: a post can carry at most %d tags", ErrValidation, MaxTags)
	}
	for _, t := range s.attached {
		if t.ID == tag.ID {
			return fmt.Errorf("%w: tag %q already attached", ErrValidation, tag.Slug)
		}
	}
	s.attached = append(s.attached, tag)
	for i, t := range s.candidates {
		if t.ID == tag.ID {
			s.candidates = append(s.candidates[:i], s.candidates[i+1:]...)
			break
		}
	}
	return nil
}

// DeselectTag moves a tag back from the attached list to the candidate list.
// Unknown tags are a no-op.
func (s *Session) DeselectTag(tag Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.attached {
		if t.ID == tag.ID {
			s.attached = append(s.attached[:i], s.attached[i+1:]...)
			s.candidates = append(s.candidates, t)
			return
		}
	}
}

// Tags returns the attached tags in attachment order.
func (s *Session) Tags() []Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Tag(nil), s.attached...)
}

// Candidates returns the tags still available for selection.
func (s *Session) Candidates() []Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Tag(nil), s.candidates...)
}

// CanSubmit reports whether the draft satisfies the submission precondition:
// a non-empty title or non-empty content.
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title != "" || s.content != ""
}

// imageChange is the tri-state outcome of image staging, resolved at submit.
type imageChange int

const (
	imageUnchanged imageChange = iota
	imageSet
)

// resolveImage decides whether the staged file must be uploaded. A staged file
// whose preview still equals the initial cover URL means nothing changed.
func (s *Session) resolveImage() (imageChange, *File) {
	if s.staged == nil {
		return imageUnchanged, nil
	}
	if s.preview != nil && s.preview.url == s.initialImage {
		return imageUnchanged, nil
	}
	staged := *s.staged
	return imageSet, &staged
}

// Submit uploads the staged cover image if it changed, assembles the payload
// and persists the post, then notifies and navigates to the canonical URL
// returned by the server. On any failure the draft state is left untouched so
// the user can retry. Upload strictly precedes the create or update call; an
// upload failure aborts the submission.
func (s *Session) Submit(ctx context.Context, status Status) error {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return ErrSubmitInFlight
	}
	if s.title == "" && s.content == "" {
		s.mu.Unlock()
		return fmt.Errorf("%w: a post needs a title or content", ErrValidation)
	}
	s.inFlight = true

	verb := "Creating"
	done := "created"
	failed := "Failed to create post"
	if s.isEdit {
		verb = "Updating"
		done = "updated"
		failed = "Failed to update post"
	}

	change, staged := s.resolveImage()
	payload := PostPayload{
		Title:       s.title,
		Content:     s.content,
		Tags:        tagSlugs(s.attached, MaxTags),
		Status:      string(status),
		Description: s.description,
		UserID:      s.userID,
	}
	isEdit := s.isEdit
	slug := s.slug
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	s.notifier.Pending(verb + " post...")

	if change == imageSet {
		url, err := s.uploader.Upload(ctx, *staged, PostsFolder)
		if err != nil {
			s.notifier.Failed(failed)
			return fmt.Errorf("upload cover image: %w", err)
		}
		payload.Image = url
	}

	var (
		post Post
		err  error
	)
	if isEdit {
		post, err = s.writer.Update(ctx, slug, payload)
	} else {
		post, err = s.writer.Create(ctx, payload)
	}
	if err != nil {
		s.notifier.Failed(failed)
		return fmt.Errorf("persist post: %w", err)
	}

	s.notifier.Succeeded("Post " + done + " successfully! Wait while we redirect you")

	if s.navigateDelay > 0 {
		t := time.NewTimer(s.navigateDelay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	s.navigator.Navigate("/" + post.User.Username + "/" + post.Slug)
	return nil
}

// Close releases the session's local preview reference. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preview.close()
}

// tagSlugs returns at most limit tag slugs, preserving attachment order.
func tagSlugs(tags []Tag, limit int) []string {
	if len(tags) > limit {
		tags = tags[:limit]
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.Slug)
	}
	return out
}
