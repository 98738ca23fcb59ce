package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend implements ImageUploader, TagDirectory and PostWriter with
// scriptable failures so submission paths can be exercised end to end.
type fakeBackend struct {
	mu sync.Mutex

	directory    []Tag
	directoryErr error

	uploadErr error
	uploadURL string
	uploads   []File

	createErr error
	updateErr error
	creates   []PostPayload
	updates   []PostPayload
	updSlugs  []string

	username string
	slug     string
}

func (f *fakeBackend) Upload(ctx context.Context, file File, folder string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, file)
	return f.uploadURL, nil
}

func (f *fakeBackend) Tags(ctx context.Context) ([]Tag, error) {
	if f.directoryErr != nil {
		return nil, f.directoryErr
	}
	return f.directory, nil
}

func (f *fakeBackend) Create(ctx context.Context, p PostPayload) (Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return Post{}, f.createErr
	}
	f.creates = append(f.creates, p)
	return f.result(p), nil
}

func (f *fakeBackend) Update(ctx context.Context, slug string, p PostPayload) (Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return Post{}, f.updateErr
	}
	f.updates = append(f.updates, p)
	f.updSlugs = append(f.updSlugs, slug)
	return f.result(p), nil
}

func (f *fakeBackend) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates)
}

func (f *fakeBackend) result(p PostPayload) Post {
	post := Post{
		Slug:    f.slug,
		Title:   p.Title,
		Content: p.Content,
		Status:  p.Status,
	}
	post.User.Username = f.username
	return post
}

// recordingNotifier captures the notification sequence of a submission.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) Pending(msg string)   { r.record("pending: " + msg) }
func (r *recordingNotifier) Succeeded(msg string) { r.record("succeeded: " + msg) }
func (r *recordingNotifier) Failed(msg string)    { r.record("failed: " + msg) }

func (r *recordingNotifier) record(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recordingNotifier) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func directoryOf(slugs ...string) []Tag {
	tags := make([]Tag, 0, len(slugs))
	for i, s := range slugs {
		tags = append(tags, Tag{ID: uint(i + 1), Slug: s, Name: s})
	}
	return tags
}

func newTestSession(t *testing.T, backend *fakeBackend, mutate func(*Options)) (*Session, *recordingNotifier, *[]string) {
	t.Helper()
	notifier := &recordingNotifier{}
	var navigations []string
	opts := Options{
		Uploader:  backend,
		Directory: backend,
		Writer:    backend,
		Notifier:  notifier,
		Navigator: NavigatorFunc(func(path string) {
			navigations = append(navigations, path)
		}),
		NoNavigateDelay: true,
	}
	if mutate != nil {
		mutate(&opts)
	}
	s, err := NewSession(context.Background(), opts)
	require.NoError(t, err)
	return s, notifier, &navigations
}

func TestNewSession_RequiresCollaborators(t *testing.T) {
	_, err := NewSession(context.Background(), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNewSession_DirectoryFailureLeavesUsableSession(t *testing.T) {
	backend := &fakeBackend{directoryErr: errors.New("boom")}
	notifier := &recordingNotifier{}
	s, err := NewSession(context.Background(), Options{
		Uploader:        backend,
		Directory:       backend,
		Writer:          backend,
		Notifier:        notifier,
		NoNavigateDelay: true,
	})
	require.Error(t, err)
	require.NotNil(t, s)
	assert.Empty(t, s.Candidates())

	// The session still submits.
	backend.username = "ada"
	backend.slug = "hello-1234"
	s.SetTitle("Hello")
	require.NoError(t, s.Submit(context.Background(), StatusDrafted))
}

func TestNewSession_PrunesAttachedTagsFromCandidates(t *testing.T) {
	backend := &fakeBackend{directory: directoryOf("go", "web", "db")}
	s, _, _ := newTestSession(t, backend, func(o *Options) {
		o.Tags = []Tag{{ID: 1, Slug: "go", Name: "go"}}
	})

	candidates := s.Candidates()
	require.Len(t, candidates, 2)
	for _, c := range candidates {
		assert.NotEqual(t, "go", c.Slug)
	}
}

func TestSelectTag_MovesBetweenLists(t *testing.T) {
	backend := &fakeBackend{directory: directoryOf("go", "web")}
	s, _, _ := newTestSession(t, backend, nil)

	tag := s.Candidates()[0]
	require.NoError(t, s.SelectTag(tag))

	assert.Len(t, s.Tags(), 1)
	assert.Len(t, s.Candidates(), 1)

	// Attached and candidate lists stay disjoint.
	for _, c := range s.Candidates() {
		assert.NotEqual(t, tag.ID, c.ID)
	}

	s.DeselectTag(tag)
	assert.Empty(t, s.Tags())
	assert.Len(t, s.Candidates(), 2)
}

func TestSelectTag_RejectsFifthTag(t *testing.T) {
	backend := &fakeBackend{directory: directoryOf("a", "b", "c", "d", "e")}
	s, _, _ := newTestSession(t, backend, nil)

	for _, tag := range s.Candidates()[:4] {
		require.NoError(t, s.SelectTag(tag))
	}

	err := s.SelectTag(s.Candidates()[0])
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Len(t, s.Tags(), 4)
}

func TestSelectTag_RejectsDuplicate(t *testing.T) {
	backend := &fakeBackend{directory: directoryOf("go")}
	s, _, _ := newTestSession(t, backend, nil)

	tag := s.Candidates()[0]
	require.NoError(t, s.SelectTag(tag))
	err := s.SelectTag(tag)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSelectImage_IgnoresNonImageFiles(t *testing.T) {
	backend := &fakeBackend{}
	s, _, _ := newTestSession(t, backend, nil)

	s.SelectImage(File{Name: "notes.pdf", MIME: "application/pdf", Data: []byte("x")})
	assert.Empty(t, s.PreviewURL())

	s.SelectImage(File{Name: "cover.png", MIME: "image/png", Data: []byte("x")})
	assert.NotEmpty(t, s.PreviewURL())
}

func TestSelectImage_ReleasesPreviousPreview(t *testing.T) {
	backend := &fakeBackend{}
	released := map[string]int{}
	s, _, _ := newTestSession(t, backend, func(o *Options) {
		o.Preview = func(f File) (string, func()) {
			return "ref:" + f.Name, func() { released[f.Name]++ }
		}
	})

	s.SelectImage(File{Name: "a.png", MIME: "image/png"})
	s.SelectImage(File{Name: "b.png", MIME: "image/png"})
	assert.Equal(t, 1, released["a.png"])
	assert.Equal(t, 0, released["b.png"])

	s.RemoveImage()
	assert.Equal(t, 1, released["b.png"])

	// Close after remove must not double-release.
	s.Close()
	assert.Equal(t, 1, released["a.png"])
	assert.Equal(t, 1, released["b.png"])
}

func TestCanSubmit(t *testing.T) {
	backend := &fakeBackend{}
	s, _, _ := newTestSession(t, backend, nil)

	assert.False(t, s.CanSubmit())
	s.SetTitle("Hello")
	assert.True(t, s.CanSubmit())
	s.SetTitle("")
	s.SetContent("body")
	assert.True(t, s.CanSubmit())
}

func TestSubmit_EmptyDraftRejected(t *testing.T) {
	backend := &fakeBackend{}
	s, notifier, _ := newTestSession(t, backend, nil)

	err := s.Submit(context.Background(), StatusDrafted)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, notifier.all())
	assert.Empty(t, backend.creates)
}

func TestSubmit_CreateNavigatesToServerResolvedPath(t *testing.T) {
	backend := &fakeBackend{
		directory: directoryOf("go", "web"),
		username:  "ada",
		slug:      "my-first-post-ab12cd34",
	}
	s, notifier, navigations := newTestSession(t, backend, nil)

	s.SetTitle("My first post")
	s.SetContent("hello world")
	require.NoError(t, s.SelectTag(s.Candidates()[0]))

	require.NoError(t, s.Submit(context.Background(), StatusPublished))

	require.Len(t, backend.creates, 1)
	payload := backend.creates[0]
	assert.Equal(t, "My first post", payload.Title)
	assert.Equal(t, string(StatusPublished), payload.Status)
	assert.Equal(t, []string{"go"}, payload.Tags)
	assert.Empty(t, payload.Image)

	require.Len(t, *navigations, 1)
	assert.Equal(t, "/ada/my-first-post-ab12cd34", (*navigations)[0])

	events := notifier.all()
	require.Len(t, events, 2)
	assert.Equal(t, "pending: Creating post...", events[0])
	assert.Equal(t, "succeeded: Post created successfully! Wait while we redirect you", events[1])
}

func TestSubmit_UploadsStagedImageBeforePersisting(t *testing.T) {
	backend := &fakeBackend{
		username:  "ada",
		slug:      "p-1",
		uploadURL: "https://cdn.example/posts/cover.png",
	}
	s, _, _ := newTestSession(t, backend, nil)

	s.SetTitle("t")
	s.SelectImage(File{Name: "cover.png", MIME: "image/png", Data: []byte("img")})

	require.NoError(t, s.Submit(context.Background(), StatusDrafted))

	require.Len(t, backend.uploads, 1)
	require.Len(t, backend.creates, 1)
	assert.Equal(t, "https://cdn.example/posts/cover.png", backend.creates[0].Image)
}

func TestSubmit_UploadFailureAbortsBeforePersist(t *testing.T) {
	backend := &fakeBackend{uploadErr: ErrUpload}
	s, notifier, navigations := newTestSession(t, backend, nil)

	s.SetTitle("t")
	s.SetContent("body")
	s.SelectImage(File{Name: "cover.png", MIME: "image/png"})

	err := s.Submit(context.Background(), StatusPublished)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpload)

	// Nothing persisted, nothing navigated, draft intact for retry.
	assert.Empty(t, backend.creates)
	assert.Empty(t, *navigations)
	assert.Equal(t, "t", s.Title())
	assert.Equal(t, "body", s.Content())
	assert.NotEmpty(t, s.PreviewURL())

	events := notifier.all()
	require.Len(t, events, 2)
	assert.Equal(t, "failed: Failed to create post", events[1])
}

func TestSubmit_PersistFailureNotifiesAndKeepsDraft(t *testing.T) {
	backend := &fakeBackend{createErr: ErrNetwork}
	s, notifier, navigations := newTestSession(t, backend, nil)

	s.SetTitle("t")
	err := s.Submit(context.Background(), StatusDrafted)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Empty(t, *navigations)
	assert.Equal(t, "t", s.Title())

	events := notifier.all()
	require.Len(t, events, 2)
	assert.Equal(t, "failed: Failed to create post", events[1])
}

func TestSubmit_EditModeSendsEmptyImageWhenUnchanged(t *testing.T) {
	backend := &fakeBackend{username: "ada", slug: "existing-post"}
	s, notifier, _ := newTestSession(t, backend, func(o *Options) {
		o.IsEdit = true
		o.Slug = "existing-post"
		o.Title = "Existing"
		o.Content = "body"
		o.Image = "https://cdn.example/posts/old.png"
	})

	require.NoError(t, s.Submit(context.Background(), StatusPublished))

	require.Len(t, backend.updates, 1)
	assert.Equal(t, "existing-post", backend.updSlugs[0])
	// Empty image on the wire means "do not change".
	assert.Empty(t, backend.updates[0].Image)

	events := notifier.all()
	assert.Equal(t, "pending: Updating post...", events[0])
	assert.Equal(t, "succeeded: Post updated successfully! Wait while we redirect you", events[1])
}

func TestSubmit_EditModeUploadsReplacementImage(t *testing.T) {
	backend := &fakeBackend{
		username:  "ada",
		slug:      "existing-post",
		uploadURL: "https://cdn.example/posts/new.png",
	}
	s, _, _ := newTestSession(t, backend, func(o *Options) {
		o.IsEdit = true
		o.Slug = "existing-post"
		o.Title = "Existing"
		o.Image = "https://cdn.example/posts/old.png"
	})

	s.SelectImage(File{Name: "new.png", MIME: "image/png", Data: []byte("img")})
	require.NoError(t, s.Submit(context.Background(), StatusPublished))

	require.Len(t, backend.uploads, 1)
	require.Len(t, backend.updates, 1)
	assert.Equal(t, "https://cdn.example/posts/new.png", backend.updates[0].Image)
}

func TestSubmit_TruncatesPayloadTags(t *testing.T) {
	// Tags injected at construction bypass SelectTag's cap; the payload still
	// carries at most four.
	backend := &fakeBackend{username: "ada", slug: "p"}
	s, _, _ := newTestSession(t, backend, func(o *Options) {
		o.Tags = directoryOf("a", "b", "c", "d", "e")
	})

	s.SetTitle("t")
	require.NoError(t, s.Submit(context.Background(), StatusDrafted))

	require.Len(t, backend.creates, 1)
	assert.Equal(t, []string{"a", "b", "c", "d"}, backend.creates[0].Tags)
}

func TestSubmit_RejectsConcurrentSubmissions(t *testing.T) {
	backend := &fakeBackend{username: "ada", slug: "p"}
	release := make(chan struct{})
	started := make(chan struct{})

	blockingWriter := &blockingPostWriter{inner: backend, release: release, started: started}
	s, _, _ := newTestSession(t, backend, func(o *Options) {
		o.Writer = blockingWriter
	})
	s.SetTitle("t")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Submit(context.Background(), StatusDrafted)
	}()
	<-started

	err := s.Submit(context.Background(), StatusDrafted)
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(release)
	require.NoError(t, <-errCh)

	// Once the first submission finishes, a new one is accepted.
	require.NoError(t, s.Submit(context.Background(), StatusDrafted))
}

type blockingPostWriter struct {
	inner   PostWriter
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (b *blockingPostWriter) Create(ctx context.Context, p PostPayload) (Post, error) {
	b.once.Do(func() {
		close(b.started)
		<-b.release
	})
	return b.inner.Create(ctx, p)
}

func (b *blockingPostWriter) Update(ctx context.Context, slug string, p PostPayload) (Post, error) {
	return b.inner.Update(ctx, slug, p)
}

func TestSubmit_NavigateDelayHonorsContext(t *testing.T) {
	backend := &fakeBackend{username: "ada", slug: "p"}
	s, _, navigations := newTestSession(t, backend, func(o *Options) {
		o.NoNavigateDelay = false
		o.NavigateDelay = time.Hour
	})
	s.SetTitle("t")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Submit(ctx, StatusDrafted)
	}()

	// Let the submission reach the delay, then cancel.
	require.Eventually(t, func() bool {
		return backend.createCount() == 1
	}, time.Second, 5*time.Millisecond)
	cancel()

	err := <-errCh
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, *navigations)
}
