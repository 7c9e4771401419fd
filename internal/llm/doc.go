// Package llm is a small client for OpenRouter-compatible chat completion
// endpoints running in JSON mode.
//
// Requests carry the configured model, referer, and title headers. Transient
// failures (timeouts, 408, 429, 5xx, empty answers) are retried with
// exponential backoff, honouring Retry-After when the server sends one.
// DecodeJSON tolerates the code fences and surrounding prose that models
// sometimes wrap their answers in.
package llm
