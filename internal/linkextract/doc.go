// Package linkextract finds the outbound links of an HTML document.
//
// Bodies are decoded to UTF-8 with golang.org/x/net/html/charset, using the
// Content-Type header and any <meta charset> declaration, and then parsed with
// golang.org/x/net/html. A <base href> in the document head changes the URL
// that relative links are resolved against.
package linkextract
