// If you are AI: This file implements the play command: it opens an MMS URL and
// writes the ASF header and media packets to a file or stdout.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"mmsgo/internal/capture"
	"mmsgo/internal/core/protocol/mms"
	"mmsgo/internal/metrics"
	"mmsgo/internal/svc/player"
	"mmsgo/internal/svc/relay"
)

func playCommand() *cli.Command {
	flags := append(sessionFlags(),
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file (- for stdout)",
			Value:   "-",
		},
		&cli.StringFlag{
			Name:  "seek",
			Usage: "Start at this byte offset of the ASF file (k/m/g suffixes allowed)",
		},
		&cli.StringFlag{
			Name:  "capture",
			Usage: "Also record every packet to this capture file (relative to capture.dir when set)",
		},
		&cli.DurationFlag{
			Name:  "duration",
			Usage: "Stop after this long (0 plays to the end)",
		},
	)
	return &cli.Command{
		Name:      "play",
		Usage:     "Download an MMS stream as ASF",
		ArgsUsage: "<mms-url>",
		Flags:     flags,
		Action:    playAction,
	}
}

func playAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("mms url required", 2)
	}
	url := c.Args().First()
	offset, err := parseOffset(c.String("seek"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := c.Duration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	out, closeOut, err := openOutput(c.String("output"), c.App.Writer)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer closeOut()

	var rec *capture.Writer
	if path := c.String("capture"); path != "" {
		if cfg.Capture.Dir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Capture.Dir, path)
		}
		f, err := os.Create(path)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		defer f.Close()
		rec = capture.NewWriter(f)
		defer rec.Flush()
	}

	m := metrics.NewCollector()
	opts, err := relay.SessionOptions(cfg.Session, logger, m)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	start := time.Now()
	session, err := player.Open(ctx, url, opts)
	if err != nil {
		return cli.Exit(fmt.Sprintf("open %s: %v", url, err), 1)
	}
	defer session.Close()

	if offset > 0 {
		if err := session.Seek(ctx, offset); err != nil {
			return cli.Exit(fmt.Sprintf("seek: %v", err), 1)
		}
	}

	written, err := copyStream(ctx, session, out, rec)
	logger.Info("play finished",
		zap.Int64("bytes", written),
		zap.String("elapsed", sinceStart(start)),
		zap.Int64("media_packets", m.Snapshot().MediaPackets),
		zap.Error(err))
	if err != nil && !errors.Is(err, io.EOF) && ctx.Err() == nil {
		return cli.Exit(fmt.Sprintf("play: %v", err), 1)
	}
	return nil
}

// chunkReader is the part of a session copyStream needs.
type chunkReader interface {
	ReadNext(ctx context.Context) (mms.Chunk, error)
}

// copyStream writes every chunk to out, and to rec when set, until the
// stream ends or ctx is cancelled.
func copyStream(ctx context.Context, src chunkReader, out io.Writer, rec *capture.Writer) (int64, error) {
	bw := bufio.NewWriterSize(out, 64<<10)
	defer bw.Flush()

	var written int64
	for {
		chunk, err := src.ReadNext(ctx)
		if err != nil {
			return written, err
		}
		if rec != nil {
			if err := rec.Write(capture.FromChunk(chunk, time.Now())); err != nil {
				return written, fmt.Errorf("capture: %w", err)
			}
		}
		n, err := bw.Write(chunk.Payload)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
}

func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
