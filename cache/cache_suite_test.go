package cache

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

//go:generate mockgen -destination "mock_victimfinder_test.go" -package $GOPACKAGE -write_package_comment=false github.com/vkngwrapper/memsim/cache VictimFinder

func TestCache(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Cache Suite")
}
