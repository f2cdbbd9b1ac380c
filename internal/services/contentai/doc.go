// Package contentai defines the AI transformations the pipeline stages call:
// transcript cleaning, insight extraction, and post generation. The
// transformations themselves are opaque model calls; this package owns the
// prompts, the JSON contracts, and the mapping onto the services error
// taxonomy.
package contentai
