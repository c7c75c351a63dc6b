// Package assets provides the stylesheets written into HTML songbooks.
//
// Styles are looked up by name. Built-in styles are embedded at compile
// time:
//
//	default   dark notes on white, for print
//	dark      light text on a dark page, pairs with --invert images
//
// A style directory holds {name}.css files. When one is configured it is
// searched first, and names it does not define fall back to the built-in
// styles, so a directory may override a single style.
//
// Names are bare identifiers. Paths are resolved with symlinks followed and
// must stay inside the style directory.
package assets
