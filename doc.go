// Package omnirecall provides an embedded Go client for the omnirecall
// retrieval-augmented QA engine: document ingestion with chunking and
// deduplication, hybrid recall over embedded chunks, and grounded chat
// completion with provider failover.
//
// The client wires the same services the HTTP API serves, directly over a
// storage backend:
//
//	client, _ := omnirecall.New(
//	    omnirecall.WithValkey("localhost:6379", ""),
//	    omnirecall.WithGemini(os.Getenv("GEMINI_API_KEY")),
//	    omnirecall.WithGitHubModels(os.Getenv("GITHUB_MODELS_TOKEN")),
//	)
//	defer client.Close()
//
//	doc, _ := client.Ingest(ctx, "runbook.md", content, "file")
//	citations, _ := client.Search(ctx, "how do I restart the worker", 5)
//	answer, _ := client.Chat(ctx, "how do I restart the worker", 5)
//
// Without an embedder, recall degrades to keyword and recency scoring.
// Without chat providers, Chat returns an error while ingestion and search
// keep working.
package omnirecall
