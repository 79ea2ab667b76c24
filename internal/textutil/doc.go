// Package textutil scores how closely free-form labels match a catalog name.
//
// Remote search pages list several hits per query, often with extra words
// (pack names, frame counts). Labels are reduced to term-frequency
// fingerprints and compared by cosine similarity so the closest hit can be
// picked instead of whichever happens to be listed first.
package textutil
