// Package conversion turns raw motion clips into glTF scenes.
//
// Each item is handed to an ordered Chain of converters: the external
// primary command first, then the in-process scene fallback. The first
// converter that produces a non-empty output wins. Items are independent; a
// bounded worker pool processes them when more than one worker is configured.
package conversion
