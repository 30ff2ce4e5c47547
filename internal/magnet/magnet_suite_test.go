package magnet_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestMagnet(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Magnet Suite")
}
