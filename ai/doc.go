// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package ai provides abstractions for the embedding services used by shelfvec.
//
// The package defines the Embedder interface that the ingestion pipeline
// depends on, the configuration shared by all embedding providers, and two
// decorators that every production embedder is wrapped in:
//
//   - RetryingEmbedder: bounded attempts, a fixed backoff between attempts, a
//     per-attempt timeout, an optional request rate limit and a call counter
//   - CachingEmbedder: a persistent text to vector cache keyed by model and text
//
// # Implementation Packages
//
//   - ai/ollama: native Ollama client (POST /api/embeddings, GET /api/tags)
//   - ai/openai: OpenAI-compatible endpoints through langchaingo
//   - ai/mock: test doubles for unit testing without external dependencies
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithEmbeddingModel("bge-m3"))
//	client, err := ollama.NewClient(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	embedder, err := ai.NewRetryingEmbedder(client, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vector, err := embedder.EmbedText(ctx, "Category: fantasy, adventure")
//	if errors.Is(err, ai.ErrEmbeddingUnavailable) {
//	    // skip the record
//	}
package ai
