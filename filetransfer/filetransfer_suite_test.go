package filetransfer_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestFileTransfer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "filetransfer suite")
}
