package proxyendpoint_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestProxyEndpoint(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "proxyendpoint suite")
}
