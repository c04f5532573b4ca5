// Package internal holds cryptographic token helpers shared by the engine
// and the reset stores. Nothing here is part of the public API.
package internal
