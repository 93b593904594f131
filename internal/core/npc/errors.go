package npc

import "errors"

var (
	ErrInvalidConfig       = errors.New("invalid behaviour tree config")
	ErrUnknownNodeType     = errors.New("unknown node type")
	ErrTemplateNotFound    = errors.New("template not found")
	ErrEntityExists        = errors.New("entity already has a tree")
	ErrEntityNotFound      = errors.New("entity has no tree")
	ErrSharedInstanceState = errors.New("stateful node shared between instances")
)
