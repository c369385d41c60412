package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"testing"
)

// serveUnix starts handler on a Unix socket and returns its path.
func serveUnix(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "dmr.sock")

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
			config:  Config{SocketPath: "", Model: "ai/gemma3"},
			wantErr: true,
		},
		{
			name:    "empty model",
			config:  Config{SocketPath: "/tmp/test.sock", Model: ""},
			wantErr: true,
		},
		{
			name:    "valid config",
			config:  Config{SocketPath: "/tmp/test.sock", Model: "ai/gemma3"},
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

func TestGenerate_Success(t *testing.T) {
	var got chatRequest
	socketPath := serveUnix(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected application/json content type")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  A generated paragraph.\n"}}]}`))
	})

	client, err := New(Config{SocketPath: socketPath, Model: "ai/gemma3", MaxTokens: 256})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	text, err := client.Generate(context.Background(), "# Heading\n", "- A\n")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "A generated paragraph." {
		t.Errorf("Generate() = %q, want trimmed content", text)
	}

	if got.Model != "ai/gemma3" {
		t.Errorf("request model = %q", got.Model)
	}
	if got.MaxTokens != 256 {
		t.Errorf("request max_tokens = %d, want 256", got.MaxTokens)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	if got.Messages[0].Content != BuildPrompt("# Heading\n", "- A\n") {
		t.Errorf("request prompt does not match BuildPrompt")
	}
}

func TestGenerate_ServerError(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"internal error", http.StatusInternalServerError, true},
		{"rate limited", http.StatusTooManyRequests, true},
		{"bad request", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			socketPath := serveUnix(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte("boom"))
			})

			client, err := New(Config{SocketPath: socketPath, Model: "ai/gemma3"})
			if err != nil {
				t.Fatalf("Failed to create client: %v", err)
			}

			_, err = client.Generate(context.Background(), "", "- A\n")
			var status *StatusError
			if !errors.As(err, &status) {
				t.Fatalf("Generate() error = %v, want *StatusError", err)
			}
			if status.Code != tt.status {
				t.Errorf("status = %d, want %d", status.Code, tt.status)
			}
			if status.Retryable() != tt.retryable {
				t.Errorf("Retryable() = %v, want %v", status.Retryable(), tt.retryable)
			}
		})
	}
}

func TestGenerate_EmptyChoices(t *testing.T) {
	socketPath := serveUnix(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	})

	client, err := New(Config{SocketPath: socketPath, Model: "ai/gemma3"})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if _, err := client.Generate(context.Background(), "", "- A\n"); err == nil {
		t.Error("Generate() expected error for empty response")
	}
}

func TestGenerate_APIErrorBody(t *testing.T) {
	socketPath := serveUnix(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error":{"message":"model not loaded"}}`))
	})

	client, err := New(Config{SocketPath: socketPath, Model: "ai/gemma3"})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	_, err = client.Generate(context.Background(), "", "- A\n")
	if err == nil || err.Error() != "API error: model not loaded" {
		t.Errorf("Generate() error = %v", err)
	}
}
