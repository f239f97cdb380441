package scan_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/spetr/unusedmember/builtin/frontend/treesitter"
	"github.com/spetr/unusedmember/internal/config"
	"github.com/spetr/unusedmember/internal/scan"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Watcher", func() {
	var (
		dir     string
		changes chan scan.Change
		cancel  context.CancelFunc
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "watch")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)

		cfg := config.DefaultConfig()
		cfg.Index.UseGitIgnore = false
		writeFile(dir, "src/Test.kt", "class Test\n")

		r, err := scan.New(scan.Options{ProjectDir: dir, Config: cfg, Frontend: treesitter.New()})
		Expect(err).NotTo(HaveOccurred())

		changes = make(chan scan.Change, 16)
		w, err := scan.NewWatcher(scan.WatcherConfig{
			Runner:       r,
			DebounceTime: 20 * time.Millisecond,
			OnChange:     func(c scan.Change) { changes <- c },
		})
		Expect(err).NotTo(HaveOccurred())

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		DeferCleanup(func() { cancel() })
		go func() {
			defer GinkgoRecover()
			Expect(w.Watch(ctx)).To(Succeed())
		}()
	})

	// The watch starts asynchronously, so the edit is repeated until an
	// event is observed.
	touchUntilChanged := func(path, content string) scan.Change {
		var got scan.Change
		Eventually(func() bool {
			select {
			case got = <-changes:
				return true
			default:
				Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
				return false
			}
		}).WithTimeout(5 * time.Second).WithPolling(100 * time.Millisecond).Should(BeTrue())
		return got
	}

	It("re-analyzes a changed file", func() {
		path := filepath.Join(dir, "src", "Test.kt")
		change := touchUntilChanged(path, "class Test {\n    private fun helper() {}\n}\n")

		Expect(change.Path).To(Equal(path))
		Expect(change.Err).NotTo(HaveOccurred())
		Expect(change.Findings).To(HaveLen(1))
		Expect(change.Findings[0].Message).To(Equal("Private function `helper` is unused."))
	})

	It("ignores files outside the include patterns", func() {
		notes := filepath.Join(dir, "src", "notes.txt")
		Expect(os.WriteFile(notes, []byte("x"), 0644)).To(Succeed())
		Consistently(changes).WithTimeout(300 * time.Millisecond).ShouldNot(Receive())
	})

	It("reports removed files", func() {
		path := filepath.Join(dir, "src", "Test.kt")
		touchUntilChanged(path, "class Test\n")

		Expect(os.Remove(path)).To(Succeed())
		var change scan.Change
		Eventually(changes).WithTimeout(5 * time.Second).Should(Receive(&change, HaveField("Removed", BeTrue())))
		Expect(change.Path).To(Equal(path))
	})
})
