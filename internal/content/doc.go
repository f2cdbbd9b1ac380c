// Package content persists the domain entities the pipeline operates on:
// transcripts, the insights extracted from them, and the post drafts
// generated per insight. Approval flags recorded here are the human-review
// gates that stop automatic stage advancement.
package content
