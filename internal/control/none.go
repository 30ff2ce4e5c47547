package control

import "github.com/san-kum/magsim/internal/magnet"

type None struct{}

func NewNone() *None {
	return &None{}
}

func (n *None) Apply(*magnet.World, magnet.Host, float64) {}
