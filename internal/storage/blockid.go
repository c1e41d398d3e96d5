package storage

import "fmt"

// BlockID identifies one block of a file: file name + block number.
// It is an immutable value, comparable, and usable as a map key.
type BlockID struct {
	File string
	Num  int32
}

func NewBlockID(file string, num int32) BlockID {
	return BlockID{File: file, Num: num}
}

func (b BlockID) String() string {
	return fmt.Sprintf("[file %s, block %d]", b.File, b.Num)
}
