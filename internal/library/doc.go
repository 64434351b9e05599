// Package library recognizes well-known JavaScript libraries and their
// versions from the banner comments they ship with.
//
// Identification is a fixed table of banner patterns matched against the
// script text. Each name@version pair is reported once per code block.
// Names are npm package names, so results go straight to the advisory
// client.
package library
