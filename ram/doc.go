// Package ram implements the byte-addressable main memory of the LS-8.
//
// Memory is a flat array of 8-bit cells. Every access is bounds checked;
// an address at or beyond the configured size is an error, never wrapped.
package ram
