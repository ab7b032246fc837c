// Package embed adapts text embedding providers to the Embedder capability
// consumed by the memory store: a local all-MiniLM-L6-v2 model through
// fastembed, an Ollama server, the OpenAI embeddings API, and a
// deterministic hashing embedder for offline use and tests.
package embed
