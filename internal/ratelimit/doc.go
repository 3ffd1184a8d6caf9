// Package ratelimit bounds request frequency per upstream source.
//
// Each source keeps a sliding log of request timestamps. Acquire blocks
// until issuing one more request would not exceed MaxRequests within the
// trailing Window, re-checking after every wait since another caller may
// have taken the freed slot.
package ratelimit
