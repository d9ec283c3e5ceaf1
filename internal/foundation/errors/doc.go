// Package errors provides the classified error primitives used across sitebuilder.
//
// Every failure that reaches the CLI carries a category (config, content,
// graph, link, output, ...), a severity and a retry hint, plus structured
// context such as the offending source path.
//
// Example usage:
//
//	err := errors.ContentError("invalid front matter").
//		WithContext("path", path).
//		WithCause(yamlErr).
//		Build()
package errors
