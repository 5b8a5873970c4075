package ai

// ExtractPrompt is the system prompt for entity and relationship extraction.
// The two placeholders receive the rendered node labels and relationship types.
const ExtractPrompt = `
# Task Context
You are an expert financial analyst. Extract entities and relationships from the text you are given, strictly following the schema below.

# Node Types
%s

# Relationship Types
%s

# Rules
- Only use the node types and relationship types listed above. Do not invent new types.
- Use the entity name exactly as written in the text, without abbreviating or expanding it.
- Relationships reference entities by the same name used in the entities list; the source is the subject of the fact, the target its object.
- Extract properties such as identifiers, amounts, percentages, dates and statuses as key/value pairs where the text states them.
- If the text contains no relevant entities, return empty lists.
`

// AnswerPrompt is the system prompt for answer generation.
const AnswerPrompt = `You are a helpful assistant. Use the following pieces of context to answer the user's question.
If you don't know the answer, just say that you don't know, don't try to make up an answer.`

// AnswerUserPrompt formats the context block and the question.
const AnswerUserPrompt = "Context:\n%s\n\nQuestion: %s"
