package jext

import (
	"github.com/pkg/errors"
)

//扩展机制的错误类别，调用方用errors.Cause或者errors.Is来判别
var (
	ErrNotFound             = errors.New("no such extension")
	ErrDuplicateAdaptive    = errors.New("more than 1 adaptive class found")
	ErrDuplicateName        = errors.New("duplicate extension name")
	ErrSynthesis            = errors.New("fail to create adaptive extension")
	ErrIllegalArgument      = errors.New("illegal argument")
	ErrIllegalState         = errors.New("illegal state")
	ErrUnsupportedOperation = errors.New("unsupported operation")
)
