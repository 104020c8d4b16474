package root_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ipc2023-classical/planner1/cmd/root"
	"github.com/ipc2023-classical/planner1/pkg/sas"
	"github.com/ipc2023-classical/planner1/pkg/sas/sastest"
)

func TestRoot(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Command Suite")
}

var _ = Describe("action-elim", func() {
	var (
		dir      string
		taskPath string
		planPath string
		stdout   *bytes.Buffer
		stderr   *bytes.Buffer
	)

	execute := func(args ...string) error {
		cmd := root.NewRootCmd()
		cmd.SetArgs(args)
		cmd.SetOut(stdout)
		cmd.SetErr(stderr)
		return cmd.Execute()
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}

		var buf bytes.Buffer
		Expect(sas.Write(&buf, sastest.Worked())).To(Succeed())
		taskPath = filepath.Join(dir, "output.sas")
		Expect(os.WriteFile(taskPath, buf.Bytes(), 0o600)).To(Succeed())
		planPath = filepath.Join(dir, "sas_plan")
		Expect(os.WriteFile(planPath, []byte("(op1)\n(op2)\n(op3)\n; cost = 3 (general cost)\n"), 0o600)).To(Succeed())
	})

	Describe("compile", func() {
		It("writes the compiled task and a report", func() {
			report := filepath.Join(dir, "report.yaml")
			err := execute("compile", "-t", taskPath, "-p", planPath, "-s", "-e", "--unnecessary", "-d", dir, "--report", report)
			Expect(err).NotTo(HaveOccurred())

			f, err := os.Open(filepath.Join(dir, "minimal-reduction.sas"))
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()
			task, err := sas.Parse(f)
			Expect(err).NotTo(HaveOccurred())
			Expect(task.Operators).To(HaveLen(3))

			data, err := os.ReadFile(report)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("necessary: 1\n"))
		})

		It("reads options from a file and lets flags override them", func() {
			config := filepath.Join(dir, "options.yaml")
			Expect(os.WriteFile(config, []byte("subsequence: true\nreduction: MLR\n"), 0o600)).To(Succeed())
			err := execute("compile", "-t", taskPath, "-p", planPath, "--config", config, "-r", "mr", "-d", dir, "-f", "out.sas", "--report", "-")
			Expect(err).NotTo(HaveOccurred())
			Expect(filepath.Join(dir, "out.sas")).To(BeAnExistingFile())
			Expect(stdout.String()).To(ContainSubstring("plan-cost: 3\n"))
		})

		It("requires the task and the plan", func() {
			err := execute("compile", "-t", taskPath)
			Expect(err).To(MatchError(ContainSubstring(`required flag(s) "plan" not set`)))
		})

		It("writes nothing when the plan is invalid", func() {
			Expect(os.WriteFile(planPath, []byte("(op2)\n"), 0o600)).To(Succeed())
			err := execute("compile", "-t", taskPath, "-p", planPath, "-d", dir)
			Expect(err).To(MatchError(ContainSubstring("does not reach the goal")))
			Expect(filepath.Join(dir, "minimal-reduction.sas")).NotTo(BeAnExistingFile())
		})

		It("rejects invalid option combinations", func() {
			err := execute("compile", "-t", taskPath, "-p", planPath, "--macros", "-d", dir)
			Expect(err).To(MatchError(ContainSubstring("invalid options")))
		})
	})

	Describe("reduce", func() {
		It("prints the optimal reduction", func() {
			cnf := filepath.Join(dir, "reduction.cnf")
			wcnf := filepath.Join(dir, "reduction.wcnf")
			err := execute("reduce", "-t", taskPath, "-p", planPath, "--cnf", cnf, "--wcnf", wcnf)
			Expect(err).NotTo(HaveOccurred())
			Expect(stdout.String()).To(Equal("(op1)\n; cost = 1 (general cost)\n"))
			Expect(cnf).To(BeAnExistingFile())
			Expect(wcnf).To(BeAnExistingFile())
		})

		It("rejects unknown objectives", func() {
			err := execute("reduce", "-t", taskPath, "-p", planPath, "--objective", "steps")
			Expect(err).To(MatchError(ContainSubstring("unknown objective")))
		})
	})

	Describe("check", func() {
		It("accepts tasks that are written back unchanged", func() {
			Expect(execute("check", taskPath)).To(Succeed())
			Expect(stdout.String()).To(HaveSuffix(": ok\n"))
		})

		It("prints the difference otherwise", func() {
			data, err := os.ReadFile(taskPath)
			Expect(err).NotTo(HaveOccurred())
			text := strings.Replace(string(data), "begin_metric\n1\n", "begin_metric\n01\n", 1)
			Expect(os.WriteFile(taskPath, []byte(text), 0o600)).To(Succeed())
			Expect(execute("check", taskPath)).To(MatchError(ContainSubstring("round trip")))
			Expect(stdout.String()).To(Equal("-01\n+1\n"))
		})

		It("fails on missing files", func() {
			Expect(execute("check", filepath.Join(dir, "missing.sas"))).To(MatchError(ContainSubstring("not found")))
		})
	})
})

var _ = Describe("PrintError", func() {
	It("prints a plain diagnostic to non-terminals", func() {
		var buf bytes.Buffer
		root.PrintError(&buf, os.ErrNotExist)
		Expect(buf.String()).To(Equal("error: file does not exist\n"))
	})
})
