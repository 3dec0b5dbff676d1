// Command penmark compiles a directory of Markdown posts into a blog
// and previews it locally with live reload.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/veslund/penmark"
)

// version is set at build time via ldflags.
var version = "dev"

var CLI struct {
	Config  string `short:"c" default:"penmark.yaml" help:"Site configuration file."`
	Verbose bool   `short:"v" help:"Enable debug logging."`

	Build struct {
		Output string `short:"o" placeholder:"DIR" help:"Write the site here instead of the configured output directory."`
		Drafts bool   `help:"Include draft posts."`
		Future bool   `help:"Include posts dated in the future."`
	} `cmd:"" help:"Build the site into the output directory."`

	Serve struct {
		Addr string `placeholder:"HOST:PORT" help:"Listen address (overrides config)."`
	} `cmd:"" help:"Serve the site with live reload and scheduled publishing."`

	New struct {
		Dir string `arg:"" help:"Directory to create the site in."`
	} `cmd:"" help:"Scaffold a new site."`

	Post struct {
		Title string `arg:"" help:"Title of the new post."`
		Draft bool   `help:"Start the post as a draft."`
	} `cmd:"" help:"Create a post file in the content directory."`

	Lint struct{} `cmd:"" help:"Check every post's front matter without building."`

	Import struct {
		Dir string `arg:"" type:"existingdir" help:"Directory of posts to import."`
	} `cmd:"" help:"Copy posts with TOML or JSON front matter into the content directory as YAML."`

	Version struct{} `cmd:"" help:"Print the penmark version."`
}

func main() {
	// A .env next to the config is honored for local development.
	_ = godotenv.Load()

	ctx := kong.Parse(&CLI,
		kong.Name("penmark"),
		kong.Description("A Markdown blog compiler with a live preview server."),
		kong.UsageOnError(),
	)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)

	var err error
	switch ctx.Command() {
	case "build":
		err = runBuild(log)
	case "serve":
		err = runServe(log)
	case "new <dir>":
		err = runNew(CLI.New.Dir)
	case "post <title>":
		err = runPost()
	case "lint":
		err = runLint()
	case "import <dir>":
		err = runImport(log)
	case "version":
		fmt.Printf("penmark %s\n", version)
	default:
		err = fmt.Errorf("unknown command %q", ctx.Command())
	}
	if err != nil {
		log.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func runBuild(log *slog.Logger) error {
	cfg, err := penmark.LoadConfig(CLI.Config)
	if err != nil {
		return err
	}
	if CLI.Build.Output != "" {
		cfg.OutputDir = CLI.Build.Output
	}
	cfg.Drafts = cfg.Drafts || CLI.Build.Drafts
	cfg.Future = cfg.Future || CLI.Build.Future

	eng, err := penmark.New(cfg, penmark.WithLogger(log))
	if err != nil {
		return err
	}
	defer eng.Close()

	_, err = eng.Build(context.Background())
	return err
}

func runServe(log *slog.Logger) error {
	cfg, err := penmark.LoadConfig(CLI.Config)
	if err != nil {
		return err
	}
	if CLI.Serve.Addr != "" {
		cfg.Addr = CLI.Serve.Addr
	}

	eng, err := penmark.New(cfg, penmark.WithLogger(log))
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := eng.Serve(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

func runPost() error {
	cfg, err := penmark.LoadConfig(CLI.Config)
	if err != nil {
		return err
	}
	path, err := penmark.CreatePost(cfg, CLI.Post.Title, CLI.Post.Draft)
	if err != nil {
		return err
	}
	fmt.Printf("created %s\n", path)
	return nil
}

func runLint() error {
	cfg, err := penmark.LoadConfig(CLI.Config)
	if err != nil {
		return err
	}
	rep, err := penmark.Lint(cfg)
	if err != nil {
		return err
	}
	for _, issue := range rep.Issues {
		fmt.Printf("%s: %v\n", issue.Path, issue.Err)
	}
	if len(rep.Issues) > 0 {
		return fmt.Errorf("%d of %d posts have problems", len(rep.Issues), rep.Checked)
	}
	fmt.Printf("%d posts ok\n", rep.Checked)
	return nil
}

func runImport(log *slog.Logger) error {
	cfg, err := penmark.LoadConfig(CLI.Config)
	if err != nil {
		return err
	}
	n, err := penmark.ImportDir(cfg, CLI.Import.Dir, log)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d posts into %s\n", n, cfg.ContentDir)
	return nil
}
