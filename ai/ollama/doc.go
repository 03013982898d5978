// Package ollama provides an ai.Embedder that talks to Ollama's native
// embedding API (POST /api/embeddings with {model, prompt}) and checks model
// availability through GET /api/tags.
package ollama
