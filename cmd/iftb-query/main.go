package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/adobe/binned-ift-reference/fontdata"
	"github.com/adobe/binned-ift-reference/iftb"
	"github.com/adobe/binned-ift-reference/sfntdir"
	"github.com/adobe/binned-ift-reference/stream"
)

func main() {
	unicodesFlag := flag.String("unicodes", "", "comma-separated hex code points to resolve, e.g. 41,1F600")
	featuresFlag := flag.String("features", "", "comma-separated four-letter feature tags, e.g. liga,kern")
	haveFlag := flag.String("have", "", "comma-separated chunk indices already available locally")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input.ttf\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(flag.Arg(0), *unicodesFlag, *featuresFlag, *haveFlag); err != nil {
		fmt.Fprintf(os.Stderr, "iftb-query: %v\n", err)
		os.Exit(1)
	}
}

func run(fontPath, unicodesFlag, featuresFlag, haveFlag string) error {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return fmt.Errorf("reading font: %w", err)
	}

	dir, err := sfntdir.Read(fontBytes, true)
	if err != nil {
		return fmt.Errorf("reading sfnt directory: %w", err)
	}

	iftbData, err := dir.TableBytes(sfntdir.IFTBTag)
	if err != nil {
		return fmt.Errorf("this font carries no IFTB table: %w", err)
	}
	table, err := iftb.Decompile(stream.NewReader(iftbData), 0)
	if err != nil {
		return fmt.Errorf("decompiling IFTB table: %w", err)
	}

	cmapData, err := dir.TableBytes(sfntdir.MakeTag("cmap"))
	if err != nil {
		return fmt.Errorf("reading cmap table: %w", err)
	}
	cmap, err := fontdata.DecodeCMap(cmapData)
	if err != nil {
		return fmt.Errorf("decoding cmap table: %w", err)
	}
	table.BuildUniMap(cmap)

	for _, idx := range parseIndices(haveFlag) {
		if int(idx) < table.ChunkSet.Len() {
			table.ChunkSet.Mark(int(idx))
		}
	}

	unicodes, err := parseHexCodePoints(unicodesFlag)
	if err != nil {
		return err
	}
	features := parseFeatureTags(featuresFlag)

	missing, err := table.GetMissingChunks(unicodes, features)
	if err != nil {
		return fmt.Errorf("resolving missing chunks: %w", err)
	}

	sorted := make([]uint32, 0, len(missing))
	for idx := range missing {
		sorted = append(sorted, idx)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for _, idx := range sorted {
		uri, err := table.GetChunkURI(idx)
		if err != nil {
			return fmt.Errorf("rendering URI for chunk %d: %w", idx, err)
		}
		fmt.Printf("%d\t%s\n", idx, uri)
	}
	return nil
}

func parseIndices(s string) []uint32 {
	var out []uint32
	for _, f := range splitNonEmpty(s) {
		v, err := strconv.ParseUint(f, 10, 32)
		if err == nil {
			out = append(out, uint32(v))
		}
	}
	return out
}

func parseHexCodePoints(s string) ([]uint32, error) {
	var out []uint32
	for _, f := range splitNonEmpty(s) {
		v, err := strconv.ParseUint(f, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid code point %q: %w", f, err)
		}
		out = append(out, uint32(v))
	}
	return out, nil
}

func parseFeatureTags(s string) []uint32 {
	var out []uint32
	for _, f := range splitNonEmpty(s) {
		var b [4]byte
		copy(b[:], f)
		out = append(out, uint32(b[0])<<24|uint32(b[1])<<16|uint32(b[2])<<8|uint32(b[3]))
	}
	return out
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
