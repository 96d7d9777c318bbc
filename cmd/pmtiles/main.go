// Command pmtiles is a thin reference CLI over the core Reader and the
// memory-mapped file, HTTP range and cloud bucket ByteRangeSource
// backends in pmtiles/source: show an
// archive's header/metadata, verify its directory statistics, or fetch
// a single tile. Conversion pipelines, the QGIS plugin, and HTTP
// serving shims are not reimplemented here.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/tilekit-oss/pmtiles/pmtiles"
	"github.com/tilekit-oss/pmtiles/pmtiles/metrics"
	"github.com/tilekit-oss/pmtiles/pmtiles/source"
	"github.com/tilekit-oss/pmtiles/pmtiles/tileset"
)

type showCmd struct {
	Archive string `arg:"" help:"Path or URL to a .pmtiles archive."`
}

type verifyCmd struct {
	Archive string `arg:"" help:"Path or URL to a .pmtiles archive."`
}

type tileCmd struct {
	Archive     string `arg:"" help:"Path or URL to a .pmtiles archive."`
	Z           uint8  `arg:"" help:"Zoom level."`
	X           uint32 `arg:"" help:"Tile column."`
	Y           uint32 `arg:"" help:"Tile row."`
	Out         string `short:"o" help:"Write tile bytes to this file instead of stdout."`
	PushGateway string `help:"Push source-request/descent-depth metrics to this Prometheus Pushgateway URL after the fetch."`
}

var cli struct {
	Show   showCmd   `cmd:"" help:"Print an archive's header and metadata."`
	Verify verifyCmd `cmd:"" help:"Recompute directory statistics and compare against the header."`
	Tile   tileCmd   `cmd:"" help:"Fetch a single tile."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("pmtiles"),
		kong.Description("Inspect PMTiles v3 archives."),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

// openSource resolves path as a local file, an http(s):// URL, or a
// gocloud.dev bucket URL ("s3://bucket/key", "gs://bucket/key",
// "azblob://container/key"), returning a ByteRangeSource and its closer.
func openSource(ctx context.Context, path string) (pmtiles.ByteRangeSource, func() error, error) {
	switch {
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return source.NewHTTPRange(path, nil), func() error { return nil }, nil
	case strings.Contains(path, "://"):
		scheme, rest, _ := strings.Cut(path, "://")
		bucket, key, ok := strings.Cut(rest, "/")
		if !ok {
			return nil, nil, fmt.Errorf("expected %s://bucket/key, got %q", scheme, path)
		}
		b, err := source.OpenBucket(ctx, scheme+"://"+bucket, key)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	default:
		f, err := source.OpenMappedFile(path)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	}
}

func (c *showCmd) Run() error {
	ctx := context.Background()
	src, closeSrc, err := openSource(ctx, c.Archive)
	if err != nil {
		return err
	}
	defer closeSrc()

	r := pmtiles.NewReader(src)
	header, err := r.Header(ctx)
	if err != nil {
		return err
	}
	metadata, err := r.Metadata(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("spec version:      3\n")
	fmt.Printf("tile type:         %v\n", header.TileType)
	fmt.Printf("tile compression:  %v\n", header.TileCompression)
	fmt.Printf("zoom range:        %d - %d\n", header.MinZoom, header.MaxZoom)
	fmt.Printf("clustered:         %v\n", header.Clustered)
	fmt.Printf("addressed tiles:   %s\n", humanize.Comma(int64(header.AddressedTilesCount)))
	fmt.Printf("tile entries:      %s\n", humanize.Comma(int64(header.TileEntriesCount)))
	fmt.Printf("tile contents:     %s\n", humanize.Comma(int64(header.TileContentsCount)))
	fmt.Printf("tile data size:    %s\n", humanize.Bytes(header.TileDataLength))

	encoded, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("metadata:\n%s\n", encoded)
	return nil
}

func (c *verifyCmd) Run() error {
	ctx := context.Background()
	src, closeSrc, err := openSource(ctx, c.Archive)
	if err != nil {
		return err
	}
	defer closeSrc()

	r := pmtiles.NewReader(src)
	report, err := tileset.Verify(ctx, r)
	if err != nil {
		return err
	}

	fmt.Printf("addressed tiles: %s\n", humanize.Comma(int64(report.AddressedTiles)))
	fmt.Printf("tile entries:    %s\n", humanize.Comma(int64(report.TileEntries)))
	fmt.Printf("tile contents:   %s\n", humanize.Comma(int64(report.TileContents)))
	fmt.Printf("zoom range:      %d - %d\n", report.MinZoom, report.MaxZoom)

	if len(report.Problems) == 0 {
		fmt.Println("OK: header statistics match the directory contents.")
		return nil
	}
	for _, p := range report.Problems {
		fmt.Fprintln(os.Stderr, "problem:", p)
	}
	return fmt.Errorf("verify found %d problem(s)", len(report.Problems))
}

func (c *tileCmd) Run() error {
	ctx := context.Background()
	src, closeSrc, err := openSource(ctx, c.Archive)
	if err != nil {
		return err
	}
	defer closeSrc()

	var readerOpts []pmtiles.ReaderOption
	var m *metrics.Metrics
	if c.PushGateway != "" {
		m = metrics.New("cli_tile", log.Default())
		readerOpts = append(readerOpts, pmtiles.WithMetrics(m))
	}

	r := pmtiles.NewReader(src, readerOpts...)
	data, err := r.Get(ctx, c.Z, c.X, c.Y)
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("no tile at z=%d x=%d y=%d", c.Z, c.X, c.Y)
	}

	if m != nil {
		if pushErr := push.New(c.PushGateway, "pmtiles_cli").
			Collector(m.SourceRequests).
			Collector(m.DescentDepth).
			Push(); pushErr != nil {
			fmt.Fprintln(os.Stderr, "metrics push failed:", pushErr)
		}
	}

	if c.Out != "" {
		return os.WriteFile(c.Out, data, 0o644)
	}
	_, err = os.Stdout.Write(data)
	return err
}
