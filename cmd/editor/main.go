// Command editor is a terminal authoring tool for the platform. It drives a
// full editing session against a running server: drafting, tag selection,
// cover image upload and publish, and prints the canonical post URL on
// success.
//
// Usage:
//
//	editor -base-url http://localhost:8080 -token $TOKEN \
//	  -title "Hello" -content-file post.md -tags go,web -image cover.png -publish
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/devlog-app/devlog/client"
	"github.com/devlog-app/devlog/editor"
	"github.com/devlog-app/devlog/render"
)

func main() {
	var (
		baseURL     = flag.String("base-url", "http://localhost:8080", "server base URL")
		token       = flag.String("token", os.Getenv("DEVLOG_TOKEN"), "bearer token (defaults to DEVLOG_TOKEN)")
		title       = flag.String("title", "", "post title")
		description = flag.String("description", "", "post description")
		contentFile = flag.String("content-file", "", "path to the markdown body")
		imagePath   = flag.String("image", "", "path to a cover image")
		tagList     = flag.String("tags", "", "comma separated tag slugs, at most 4")
		publish     = flag.Bool("publish", false, "publish instead of saving a draft")
		editSlug    = flag.String("edit", "", "edit the existing post with this slug")
		preview     = flag.Bool("preview", false, "render the markdown body to stdout and exit")
		timeout     = flag.Duration("timeout", 2*time.Minute, "overall deadline for the submission")
	)
	flag.Parse()

	content := ""
	if *contentFile != "" {
		b, err := os.ReadFile(*contentFile)
		if err != nil {
			fatalf("read content file: %v", err)
		}
		content = string(b)
	}

	if *preview {
		os.Stdout.Write(render.Markdown([]byte(content), render.DefaultHighlightTheme))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	api := client.New(*baseURL, *token)

	session, err := editor.NewSession(ctx, editor.Options{
		Uploader:  api,
		Directory: api,
		Writer:    api,
		Notifier: editor.NotifierFunc{
			OnPending:   func(msg string) { fmt.Fprintln(os.Stderr, msg) },
			OnSucceeded: func(msg string) { fmt.Fprintln(os.Stderr, msg) },
			OnFailed:    func(msg string) { fmt.Fprintln(os.Stderr, msg) },
		},
		Navigator: editor.NavigatorFunc(func(path string) {
			fmt.Println(strings.TrimRight(*baseURL, "/") + path)
		}),
		Title:           *title,
		Description:     *description,
		Content:         content,
		Slug:            *editSlug,
		IsEdit:          *editSlug != "",
		NoNavigateDelay: true,
	})
	if err != nil {
		// A directory failure still leaves a usable session; tags just
		// cannot be attached.
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	defer session.Close()

	if err := attachTags(session, *tagList); err != nil {
		fatalf("%v", err)
	}

	if *imagePath != "" {
		if err := stageImage(session, *imagePath); err != nil {
			fatalf("%v", err)
		}
	}

	if !session.CanSubmit() {
		fatalf("nothing to submit: provide -title or -content-file")
	}

	status := editor.StatusDrafted
	if *publish {
		status = editor.StatusPublished
	}

	if err := session.Submit(ctx, status); err != nil {
		fatalf("submit: %v", err)
	}
}

// attachTags resolves the requested slugs against the session's candidate list
// and attaches them in the given order.
func attachTags(session *editor.Session, list string) error {
	if strings.TrimSpace(list) == "" {
		return nil
	}

	candidates := session.Candidates()
	bySlug := make(map[string]editor.Tag, len(candidates))
	for _, t := range candidates {
		bySlug[t.Slug] = t
	}

	for _, raw := range strings.Split(list, ",") {
		slug := strings.ToLower(strings.TrimSpace(raw))
		if slug == "" {
			continue
		}
		tag, ok := bySlug[slug]
		if !ok {
			return fmt.Errorf("unknown tag %q; pick from the server's tag directory", slug)
		}
		if err := session.SelectTag(tag); err != nil {
			return err
		}
	}
	return nil
}

// stageImage reads the file and stages it on the session. The session ignores
// non-image files silently, so surface that case here.
func stageImage(session *editor.Session, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read cover image: %w", err)
	}

	mime := http.DetectContentType(b)
	session.SelectImage(editor.File{Name: filepath.Base(path), MIME: mime, Data: b})
	if session.PreviewURL() == "" {
		return fmt.Errorf("%s is not an image (detected %s)", path, mime)
	}
	return nil
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
