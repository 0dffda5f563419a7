// Package parser splits plain-text and Markdown bytes into structural
// blocks in a single forward pass.
//
// Recognised blocks are ATX headings, fenced code blocks and paragraphs.
// Headings own the section that follows them up to the next heading of
// the same or a shallower level; paragraphs and code blocks are leaves.
// Blank lines belong to no block. Every byte of the input lies inside the
// document root, so a renderer that copies leaves and the gaps between
// them reproduces the input exactly.
//
// The parser never fails on malformed input. Unrecognised lines degrade
// to paragraphs and an unterminated fence runs to the end of the input.
package parser
