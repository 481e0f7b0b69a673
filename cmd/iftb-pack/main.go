package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adobe/binned-ift-reference/config"
	"github.com/adobe/binned-ift-reference/encode"
	"github.com/adobe/binned-ift-reference/fontdata"
	"github.com/adobe/binned-ift-reference/sfntdir"
	"github.com/adobe/binned-ift-reference/stream"
)

func main() {
	configPath := flag.String("config", "", "path to the ChunkingConfig YAML document")
	filesURI := flag.String("files-uri", "chunks/$4$3$2$1.bin", "URI template for chunk payload files")
	rangeURI := flag.String("range-uri", "ranges/$1.bin", "URI template for range-request files")
	chunkDir := flag.String("chunk-dir", "", "directory to write per-chunk payload files into (default: next to output font)")
	flag.Parse()

	if flag.NArg() < 2 || *configPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -config chunking.yaml [options] input.ttf output.ttf\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	inputFile, outputFile := flag.Arg(0), flag.Arg(1)

	if err := run(inputFile, outputFile, *configPath, *filesURI, *rangeURI, *chunkDir); err != nil {
		fmt.Fprintf(os.Stderr, "iftb-pack: %v\n", err)
		os.Exit(1)
	}
}

func run(inputFile, outputFile, configPath, filesURI, rangeURI, chunkDir string) error {
	fontBytes, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("reading input font: %w", err)
	}

	dir, err := sfntdir.Read(fontBytes, true)
	if err != nil {
		return fmt.Errorf("reading sfnt directory: %w", err)
	}

	cmapData, err := dir.TableBytes(sfntdir.MakeTag("cmap"))
	if err != nil {
		return fmt.Errorf("reading cmap table: %w", err)
	}
	cmap, err := fontdata.DecodeCMap(cmapData)
	if err != nil {
		return fmt.Errorf("decoding cmap table: %w", err)
	}

	fd := &encode.FontData{CMap: cmap}
	if dir.Has(sfntdir.MakeTag("glyf")) {
		glyfData, err := dir.TableBytes(sfntdir.MakeTag("glyf"))
		if err != nil {
			return err
		}
		locaData, err := dir.TableBytes(sfntdir.MakeTag("loca"))
		if err != nil {
			return fmt.Errorf("reading loca table: %w", err)
		}
		headData, err := dir.TableBytes(sfntdir.MakeTag("head"))
		if err != nil {
			return fmt.Errorf("reading head table: %w", err)
		}
		if len(headData) < 52 {
			return fmt.Errorf("head table too short")
		}
		locaFormat := int16(headData[50])<<8 | int16(headData[51])
		glyf, err := fontdata.DecodeGlyf(glyfData, locaData, locaFormat)
		if err != nil {
			return fmt.Errorf("decoding glyf/loca tables: %w", err)
		}
		fd.Glyf = glyf
	} else if dir.Has(sfntdir.MakeTag("CFF ")) {
		cffData, err := dir.TableBytes(sfntdir.MakeTag("CFF "))
		if err != nil {
			return err
		}
		idx, _, err := fontdata.DecodeCFFIndex(cffData)
		if err != nil {
			return fmt.Errorf("decoding CFF CharStrings INDEX: %w", err)
		}
		fd.CFF = idx
	} else {
		return fmt.Errorf("font has neither a glyf nor a CFF table")
	}

	cf, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("opening chunking config: %w", err)
	}
	defer cf.Close()
	cfg, err := config.Load(cf)
	if err != nil {
		return fmt.Errorf("loading chunking config: %w", err)
	}

	result, err := encode.Partition(fd, cfg, nil, filesURI, rangeURI)
	if err != nil {
		return fmt.Errorf("partitioning font: %w", err)
	}

	w := stream.NewWriter()
	n, err := result.Table.Compile(w, 0)
	if err != nil {
		return fmt.Errorf("compiling IFTB table: %w", err)
	}
	dir.SetTable(sfntdir.IFTBTag, w.Bytes()[:n])

	out, err := dir.Write(true, true)
	if err != nil {
		return fmt.Errorf("writing font: %w", err)
	}
	if err := os.WriteFile(outputFile, out, 0o644); err != nil {
		return fmt.Errorf("writing output font: %w", err)
	}

	if chunkDir == "" {
		chunkDir = filepath.Dir(outputFile)
	}
	if err := os.MkdirAll(chunkDir, 0o755); err != nil {
		return fmt.Errorf("creating chunk directory: %w", err)
	}
	for idx := uint32(1); idx < result.Table.ChunkCount; idx++ {
		uri, err := result.Table.GetChunkURI(idx)
		if err != nil {
			return fmt.Errorf("rendering chunk URI for chunk %d: %w", idx, err)
		}
		path := filepath.Join(chunkDir, uri)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, result.Chunks[idx], 0o644); err != nil {
			return fmt.Errorf("writing chunk %d: %w", idx, err)
		}
	}

	fmt.Printf("Packed %s into %s: %d chunks\n", inputFile, outputFile, result.Table.ChunkCount)
	return nil
}
