// Package pipeline turns Markdown documents containing fenced music
// notation into HTML with the scores replaced by rendered images.
//
// The conversion runs in three steps:
//   - Scan: goldmark parses the document and every fenced code block whose
//     info string names a known notation becomes a Block.
//   - Render: the caller renders all blocks at once, typically through a
//     scorerender.Pool, and returns one Image per block.
//   - Emit: rendered blocks become <img> elements; blocks that failed keep
//     their source, highlighted by chroma, followed by the error message.
//
// The package does not import the renderer; it only sees a RenderFunc.
package pipeline
