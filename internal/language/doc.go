// Package language normalizes the languages a submission may be requested in.
//
// Inputs may be stored words (ENGLISH), ISO 639 codes (en, hin), or BCP 47
// tags (hi-IN); everything is stored as the upper-case word. ENGLISH is the
// canonical language for tag inheritance.
package language
