// Package llm provides the fallback matching pass backed by a text-generation
// service. It supports OpenAI and Anthropic providers, with retry logic, rate
// limiting, reply caching and a strict parser for untrusted model replies.
package llm
