// Package notation describes the music notations scorerender can render.
//
// Each notation is a Spec value: a header/footer template wrapped around the
// user's fragment, an ordered blacklist of constructs that could reach the
// filesystem or inject PostScript, the renderer's argument builder, a version
// probe used to recognize the configured binary, and the ImageMagick tuning
// for its output. Behavior differences between notations are data; the few
// real quirks (unit conversion, carriage return handling) are small fields
// on the Spec.
//
// A Registry is built once at startup from a set of Specs and is read-only
// afterwards, so it can be shared by concurrent renders.
package notation
