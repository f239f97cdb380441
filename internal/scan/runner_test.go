package scan_test

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spetr/unusedmember/builtin/cache/sqlite"
	"github.com/spetr/unusedmember/builtin/frontend/treesitter"
	"github.com/spetr/unusedmember/builtin/resolver/signature"
	"github.com/spetr/unusedmember/internal/config"
	"github.com/spetr/unusedmember/internal/scan"
	"github.com/spetr/unusedmember/pkg/types"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gstruct"
)

const (
	testKt = `class Test {
    private val unused = 1
    private fun usedMethod(unusedParameter: Int) = 2
    fun run() = usedMethod(3)
}
`
	mainKt = `fun main(args: Array<String>) {
    println(args.size)
}
`
	suppressedKt = `@file:Suppress("UnusedPrivateMember")
package sample

private fun hidden() {}
`
	overloadKt = `class Overloads {
    private fun f(x: Int) = x
    private fun f(s: String) = s
    fun run() = f(1)
}
`
)

func writeFile(dir, name, content string) string {
	path := filepath.Join(dir, name)
	Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
	Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
	return path
}

var _ = Describe("Runner", func() {
	var (
		ctx context.Context
		dir string
		cfg *config.Config
	)

	newRunner := func(opts scan.Options) *scan.Runner {
		opts.ProjectDir = dir
		opts.Config = cfg
		if opts.Frontend == nil {
			opts.Frontend = treesitter.New()
		}
		r, err := scan.New(opts)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(r.Close)
		return r
	}

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		dir, err = os.MkdirTemp("", "scan")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)

		cfg = config.DefaultConfig()
		cfg.Index.UseGitIgnore = false

		writeFile(dir, "src/Test.kt", testKt)
		writeFile(dir, "src/Main.kt", mainKt)
		writeFile(dir, "src/Suppressed.kt", suppressedKt)
		writeFile(dir, "build/Generated.kt", "private fun generated() {}\n")
		writeFile(dir, "README.md", "# sample\n")
	})

	It("requires a frontend", func() {
		_, err := scan.New(scan.Options{Config: cfg})
		Expect(err).To(MatchError(types.ErrProviderNotAvailable))
	})

	It("reports unused members across the project", func() {
		r := newRunner(scan.Options{})
		report, err := r.Run(ctx, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(report.Files).To(Equal(3))
		Expect(report.Errors).To(BeEmpty())
		Expect(report.Findings).To(HaveExactElements(
			MatchFields(IgnoreExtras, Fields{
				"Name":    Equal("unused"),
				"Kind":    Equal(types.DeclProperty),
				"Message": Equal("Private property `unused` is unused."),
				"RuleID":  Equal("UnusedPrivateMember"),
			}),
			MatchFields(IgnoreExtras, Fields{
				"Name":    Equal("unusedParameter"),
				"Message": Equal("Function parameter `unusedParameter` is unused."),
			}),
		))
		Expect(report.Findings[0].Location.Path).To(HaveSuffix(filepath.Join("src", "Test.kt")))
		Expect(report.Findings[0].Location.StartLine).To(Equal(2))
	})

	It("analyzes explicit files", func() {
		r := newRunner(scan.Options{})
		report, err := r.Run(ctx, []string{filepath.Join(dir, "build", "Generated.kt")})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Files).To(Equal(1))
		Expect(report.Findings).To(ConsistOf(
			MatchFields(IgnoreExtras, Fields{"Message": Equal("Private function `generated` is unused.")}),
		))
	})

	It("records unsupported files as errors", func() {
		r := newRunner(scan.Options{})
		report, err := r.Run(ctx, []string{filepath.Join(dir, "README.md")})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Files).To(BeZero())
		Expect(report.Errors).To(HaveLen(1))
		Expect(report.Errors[0].Path).To(HaveSuffix("README.md"))
	})

	It("fails on a missing path", func() {
		r := newRunner(scan.Options{})
		_, err := r.Run(ctx, []string{filepath.Join(dir, "missing")})
		Expect(err).To(MatchError(ContainSubstring("failed to scan files")))
	})

	It("does nothing when the rule is inactive", func() {
		cfg.Rule.Active = false
		cfg.Rule.AllowedNames = "("
		r := newRunner(scan.Options{})
		report, err := r.Run(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Files).To(BeZero())
		Expect(report.Findings).To(BeEmpty())
	})

	It("aborts on an invalid allowed names pattern", func() {
		cfg.Rule.AllowedNames = "("
		r := newRunner(scan.Options{})
		_, err := r.Run(ctx, nil)
		Expect(err).To(MatchError(types.ErrInvalidConfig))
	})

	It("honors the max files limit", func() {
		cfg.Limits.MaxFiles = 1
		r := newRunner(scan.Options{})
		report, err := r.Run(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Files).To(Equal(1))
	})

	It("skips files above the size limit", func() {
		cfg.Limits.MaxFileSize = "10B"
		r := newRunner(scan.Options{})
		report, err := r.Run(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Files).To(BeZero())
		Expect(report.Errors).To(HaveLen(3))
		Expect(report.Errors[0].Err).To(ContainSubstring("file too large"))
	})

	It("gives the same answer with any worker count", func() {
		cfg.Limits.Workers = 1
		serial, err := newRunner(scan.Options{}).Run(ctx, nil)
		Expect(err).NotTo(HaveOccurred())

		cfg.Limits.Workers = 8
		parallel, err := newRunner(scan.Options{}).Run(ctx, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(parallel.Findings).To(Equal(serial.Findings))
	})

	DescribeTable("overload disambiguation",
		func(withResolver bool, expected []string) {
			writeFile(dir, "src/Overloads.kt", overloadKt)
			opts := scan.Options{}
			if withResolver {
				opts.Resolver = signature.New()
			}
			r := newRunner(opts)
			report, err := r.Run(ctx, []string{filepath.Join(dir, "src", "Overloads.kt")})
			Expect(err).NotTo(HaveOccurred())

			var messages []string
			for _, f := range report.Findings {
				messages = append(messages, f.Message)
			}
			Expect(messages).To(Equal(expected))
		},
		Entry("syntactic matching keeps every overload alive", false, nil),
		Entry("the resolver binds the call to one overload", true, []string{"Private function `f` is unused."}),
	)

	Context("with a findings cache", func() {
		var cache *sqlite.Cache

		BeforeEach(func() {
			cache = sqlite.New()
			Expect(cache.Init(filepath.Join(dir, ".unusedmember", "findings.db"))).To(Succeed())
			DeferCleanup(cache.Close)
		})

		It("serves unchanged files from the cache", func() {
			first, err := newRunner(scan.Options{Cache: cache}).Run(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Cached).To(BeZero())

			second, err := newRunner(scan.Options{Cache: cache}).Run(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Cached).To(Equal(3))
			Expect(second.Findings).To(Equal(first.Findings))
		})

		It("re-analyzes changed files", func() {
			_, err := newRunner(scan.Options{Cache: cache}).Run(ctx, nil)
			Expect(err).NotTo(HaveOccurred())

			writeFile(dir, "src/Test.kt", "class Test\n")
			report, err := newRunner(scan.Options{Cache: cache}).Run(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Cached).To(Equal(2))
			Expect(report.Findings).To(BeEmpty())
		})

		It("misses when the rule configuration changes", func() {
			_, err := newRunner(scan.Options{Cache: cache}).Run(ctx, nil)
			Expect(err).NotTo(HaveOccurred())

			cfg.Rule.AllowedNames = "unused.*"
			report, err := newRunner(scan.Options{Cache: cache}).Run(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Cached).To(BeZero())
			Expect(report.Findings).To(BeEmpty())
		})
	})
})

var _ = Describe("DetectLanguage", func() {
	DescribeTable("maps extensions",
		func(path, want string) {
			Expect(scan.DetectLanguage(path)).To(Equal(want))
		},
		Entry("kotlin", "a/B.kt", "kotlin"),
		Entry("script", "build.gradle.kts", "kts"),
		Entry("upper case", "A.KT", "kotlin"),
		Entry("other", "main.go", "unknown"),
	)
})
