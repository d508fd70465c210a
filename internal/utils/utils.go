package utils

import (
	"math/rand"
)

const roomIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateRoomID returns an n-char uppercase alphanumeric room code.
func GenerateRoomID(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = roomIDAlphabet[rand.Intn(len(roomIDAlphabet))]
	}
	return string(b)
}

const socketIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateSocketID returns an opaque per-connection identifier.
func GenerateSocketID(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = socketIDAlphabet[rand.Intn(len(socketIDAlphabet))]
	}
	return string(b)
}
