package models

type Quote struct {
	Content string
	Author  string
	Tags    []string
}
