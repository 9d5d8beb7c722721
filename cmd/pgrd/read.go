package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"pagereader/book"
	"pagereader/common"
	"pagereader/config"
	"pagereader/layout"
	"pagereader/metrics"
	"pagereader/session"
	"pagereader/state"
	"pagereader/store"
	"pagereader/worker"
)

func readCommand() *cli.Command {
	return &cli.Command{
		Name:         "read",
		Usage:        "Opens a book and paginates it interactively",
		OnUsageError: usageErrorHandler,
		Action:       runRead,
		ArgsUsage:    "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "font", Value: common.FontFaceSystem.String(), Usage: "font `FACE` (" + strings.Join(common.FontFaceNames(), ", ") + ")"},
			&cli.FloatFlag{Name: "size", Value: 17, Usage: "font size in points"},
			&cli.StringFlag{Name: "theme", Value: common.ThemeLight.String(), Usage: "colour `THEME` (" + strings.Join(common.ThemeNames(), ", ") + ")"},
			&cli.FloatFlag{Name: "line-spacing", Value: 1.0, Usage: "line spacing multiplier"},
			&cli.FloatFlag{Name: "width", Value: 390, Usage: "viewport width in points"},
			&cli.FloatFlag{Name: "height", Value: 844, Usage: "viewport height in points"},
		},
	}
}

func runRead(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	if cmd.Args().Len() == 0 {
		return fmt.Errorf("missing required FILE argument")
	}
	path := cmd.Args().Get(0)

	face, err := common.ParseFontFace(cmd.String("font"))
	if err != nil {
		return fmt.Errorf("invalid --font: %w", err)
	}
	theme, err := common.ParseTheme(cmd.String("theme"))
	if err != nil {
		return fmt.Errorf("invalid --theme: %w", err)
	}

	b, err := book.Open(path, "")
	if err != nil {
		return fmt.Errorf("unable to open book: %w", err)
	}
	if b.Lossy {
		env.Log.Warn("no candidate encoding decoded losslessly, used UTF-8 with replacement", zap.String("file", path))
	}
	env.Log.Info("Book opened", zap.String("title", b.Title), zap.String("content_hash", b.ContentHash), zap.String("encoding", b.EncodingName))

	storePath, err := config.ExpandStorePath(env.Cfg.Store.PathTemplate, b.Title, b.ContentHash)
	if err != nil {
		return fmt.Errorf("unable to expand cache store path: %w", err)
	}
	if env.Store, err = store.Open(storePath); err != nil {
		return fmt.Errorf("unable to open cache store: %w", err)
	}
	env.Worker = worker.New(env.Store, env.Log,
		worker.WithBatchSize(env.Cfg.Worker.BatchSize, env.Cfg.Worker.PriorityBatchSize),
		worker.WithYieldDelay(time.Duration(env.Cfg.Worker.BatchYieldMillis)*time.Millisecond))

	settings := layout.Settings{
		FontFace:    face,
		FontSize:    cmd.Float("size"),
		Theme:       theme,
		LineSpacing: cmd.Float("line-spacing"),
	}
	viewport := metrics.ViewportSize{Width: cmd.Float("width"), Height: cmd.Float("height")}

	sess := session.Open(ctx, b.ContentHash, b.ContentHash, b.CanonicalText, settings, viewport, b.EncodingName, env.Store, env.Worker, env.Log)
	defer env.Worker.Cancel(b.ContentHash)

	return runReadLoop(ctx, sess, b)
}

func runReadLoop(ctx context.Context, sess *session.Session, b book.Book) error {
	fmt.Printf("Opened %q (%s). Commands: n[ext], p[rev], g <page>, c[ount], s[tate], q[uit]\n", b.Title, b.EncodingName)

	current := 1
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("[page %d, %s] > ", current, sess.State())
		if !scanner.Scan() {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "q", "quit":
			return nil
		case "n", "next":
			current++
		case "p", "prev":
			if current > 1 {
				current--
			}
		case "g", "goto":
			if len(fields) < 2 {
				fmt.Println("usage: g <page>")
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 1 {
				fmt.Println("invalid page number")
				continue
			}
			current = n
		case "c", "count":
			result, err := sess.PageCount(ctx)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			kind := "estimated"
			if result.IsAuthoritative {
				kind = "authoritative"
			}
			fmt.Printf("%d pages (%s)\n", result.Value, kind)
			continue
		case "s", "state":
			fmt.Println(sess.State())
			continue
		default:
			fmt.Println("unknown command")
			continue
		}

		page, err := sess.PageContent(ctx, current)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		kind := "estimated"
		if page.IsAuthoritative {
			kind = "authoritative"
		}
		fmt.Printf("--- page %d (%s) ---\n%s\n", current, kind, page.Text)
	}
}
