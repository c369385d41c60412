package embeddings

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

// serveUnix starts handler on a Unix socket and returns its path.
func serveUnix(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "test.sock")

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("Failed to create Unix socket: %v", err)
	}

	server := &http.Server{Handler: handler}
	go server.Serve(listener)
	t.Cleanup(func() { server.Close() })

	return socketPath
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "empty socket path",
			config:  Config{SocketPath: "", Model: "test-model"},
			wantErr: true,
		},
		{
			name:    "empty model",
			config:  Config{SocketPath: "/tmp/test.sock", Model: ""},
			wantErr: true,
		},
		{
			name:    "valid config",
			config:  Config{SocketPath: "/tmp/test.sock", Model: "test-model"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDimensions(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"ai/embeddinggemma", 768},
		{"ai/snowflake-arctic-embed", 1024},
		{"ai/qwen3-embedding", 2560},
		{"unknown-model", 768}, // default
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := Dimensions(tt.model); got != tt.want {
				t.Errorf("Dimensions(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestEmbedBatch_OrdersByIndex(t *testing.T) {
	var got embeddingRequest
	socketPath := serveUnix(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		// Answer out of order.
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"index":1,"embedding":[0.2]},{"index":0,"embedding":[0.1]}]}`))
	})

	client, err := New(Config{SocketPath: socketPath, Model: "test-model"})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	long := strings.Repeat("x", MaxInputChars+10)
	vectors, err := client.EmbedBatch(context.Background(), []string{"first", long})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}

	if len(vectors) != 2 || vectors[0][0] != 0.1 || vectors[1][0] != 0.2 {
		t.Errorf("EmbedBatch() = %v, want [[0.1] [0.2]]", vectors)
	}
	if got.Model != "test-model" || len(got.Input) != 2 {
		t.Fatalf("unexpected request: %+v", got)
	}
	if len(got.Input[1]) != MaxInputChars {
		t.Errorf("input not truncated: %d chars", len(got.Input[1]))
	}
}

func TestEmbedBatch_TruncatesOnRuneBoundary(t *testing.T) {
	var got embeddingRequest
	socketPath := serveUnix(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1]}]}`))
	})

	client, err := New(Config{SocketPath: socketPath, Model: "test-model"})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	// One leading byte puts every two-byte rune off the cut point.
	text := "x" + strings.Repeat("é", MaxInputChars)
	if _, err := client.EmbedBatch(context.Background(), []string{text}); err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}

	if len(got.Input) != 1 {
		t.Fatalf("unexpected request: %+v", got)
	}
	input := got.Input[0]
	if !utf8.ValidString(input) {
		t.Errorf("truncated input is not valid UTF-8")
	}
	if len(input) != MaxInputChars-1 {
		t.Errorf("truncated input = %d bytes, want %d", len(input), MaxInputChars-1)
	}
}

func TestEmbed_Success(t *testing.T) {
	socketPath := serveUnix(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1,0.2,0.3]}]}`))
	})

	client, err := New(Config{SocketPath: socketPath, Model: "test-model"})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	embedding, err := client.Embed(context.Background(), "test text")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(embedding) != 3 {
		t.Errorf("Embed() returned %d dimensions, want 3", len(embedding))
	}
}

func TestEmbed_ServerError(t *testing.T) {
	socketPath := serveUnix(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal error"))
	})

	client, err := New(Config{SocketPath: socketPath, Model: "test-model"})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if _, err := client.Embed(context.Background(), "test text"); err == nil {
		t.Error("Embed() expected error for server error response")
	}
}

func TestEmbed_CountMismatch(t *testing.T) {
	socketPath := serveUnix(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[]}`))
	})

	client, err := New(Config{SocketPath: socketPath, Model: "test-model"})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if _, err := client.Embed(context.Background(), "test text"); err == nil {
		t.Error("Embed() expected error for empty response")
	}
}

func TestEmbedBatch_Empty(t *testing.T) {
	client, err := New(Config{SocketPath: "/tmp/unused.sock", Model: "test-model"})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	vectors, err := client.EmbedBatch(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Errorf("EmbedBatch(nil) = %v, %v", vectors, err)
	}
}
