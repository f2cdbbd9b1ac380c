package contentai

const cleanSystemPrompt = `You clean up raw spoken-word transcripts. Remove filler words,
false starts, and transcription artifacts while preserving the speaker's
meaning, tone, and all substantive content. Fix punctuation and paragraph
breaks. Respond with JSON only, in the shape:
{"cleaned_content": "..."}`

const extractSystemPrompt = `You extract discrete, self-contained insights from a cleaned
transcript. Each insight is one idea that could stand alone as the seed of a
social post: a claim, a lesson, a story beat, a recommendation. Skip
pleasantries and logistics. Respond with JSON only, in the shape:
{"insights": [{"title": "...", "body": "...", "category": "..."}]}
Category is a single lowercase word such as "product", "process", or "story".
Return an empty list when the transcript contains nothing worth posting.`

const generateSystemPrompt = `You turn one insight into platform-ready social posts. Write in
the speaker's voice, no hashtag spam, no engagement bait. Respect each
platform's maximum length exactly; a post over the limit is a failure.
Respond with JSON only, in the shape:
{"posts": [{"platform": "...", "body": "..."}]}
Produce exactly one post per requested platform.`
