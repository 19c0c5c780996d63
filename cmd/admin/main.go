package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"idlecraft.ai/internal/persistence/blobstore"
	"idlecraft.ai/internal/persistence/save"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "export":
			exportCmd(os.Args[2:])
			return
		case "import":
			importCmd(os.Args[2:])
			return
		case "events":
			eventsCmd(os.Args[2:])
			return
		case "metrics":
			metricsCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin export|import|events|metrics [flags]")
	os.Exit(2)
}

func openStore(fs *flag.FlagSet, args []string) (blobstore.Store, *string) {
	dataDir := fs.String("data", "./data", "runtime data directory")
	backend := fs.String("backend", "sqlite", "blob backend: sqlite|file")
	key := fs.String("key", blobstore.Player, "blob key: player|settings|player_corrupt")
	_ = fs.Parse(args)

	switch *key {
	case blobstore.Player, blobstore.Settings, blobstore.PlayerCorrupt:
	default:
		fmt.Fprintf(os.Stderr, "unknown -key %q\n", *key)
		os.Exit(2)
	}
	store, err := blobstore.Open(*backend, *dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	return store, key
}

func exportCmd(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	store, key := openStore(fs, args)
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	b, ok, err := store.LoadBlob(ctx, *key)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Fprintf(os.Stderr, "no %s saved\n", *key)
		os.Exit(1)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, b, "", "  "); err != nil {
		if *key == blobstore.PlayerCorrupt {
			os.Stdout.Write(b)
			return
		}
		fmt.Fprintln(os.Stderr, "stored blob is not JSON:", err)
		os.Exit(1)
	}
	fmt.Println(out.String())
}

func importCmd(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	inPath := fs.String("in", "", "JSON file to store (required)")
	store, key := openStore(fs, args)
	defer store.Close()

	if strings.TrimSpace(*inPath) == "" {
		fmt.Fprintln(os.Stderr, "missing -in")
		os.Exit(2)
	}
	raw, err := os.ReadFile(*inPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	data, err := normalizeBlob(*key, raw)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.SaveBlob(ctx, *key, data); err != nil {
		fmt.Fprintln(os.Stderr, "save:", err)
		os.Exit(1)
	}
	fmt.Printf("stored %s (%d bytes)\n", *key, len(data))
}

// normalizeBlob decodes raw with the game codec and re-encodes it, so only
// blobs the server can load are stored.
func normalizeBlob(key string, raw []byte) ([]byte, error) {
	switch key {
	case blobstore.Player:
		p, err := save.DecodePlayer(raw)
		if err != nil {
			return nil, err
		}
		return save.EncodePlayer(p)
	case blobstore.Settings:
		s, err := save.DecodeSettings(raw)
		if err != nil {
			return nil, err
		}
		return save.EncodeSettings(s)
	default:
		return nil, fmt.Errorf("unknown key %q", key)
	}
}
