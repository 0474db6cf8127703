package llm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pipemail.dev/triage/common/llm"
)

var _ = Describe("New", func() {
	DescribeTable("provider selection",
		func(cfg llm.Config, wantErr string) {
			client, err := llm.New(cfg)
			if wantErr == "" {
				Expect(err).NotTo(HaveOccurred())
				Expect(client).NotTo(BeNil())
				Expect(client.Provider()).To(Equal(cfg.Provider))
			} else {
				Expect(err).To(MatchError(ContainSubstring(wantErr)))
				Expect(client).To(BeNil())
			}
		},
		Entry("openai with key", llm.Config{Provider: llm.ProviderOpenAI, APIKey: "sk-test"}, ""),
		Entry("openai without key", llm.Config{Provider: llm.ProviderOpenAI}, "API key is required"),
		Entry("anthropic with key", llm.Config{Provider: llm.ProviderAnthropic, APIKey: "sk-ant-test"}, ""),
		Entry("anthropic without key", llm.Config{Provider: llm.ProviderAnthropic}, "API key is required"),
		Entry("ollama without key", llm.Config{Provider: llm.ProviderOllama}, ""),
		Entry("unknown provider", llm.Config{Provider: "bedrock", APIKey: "x"}, "unsupported LLM provider"),
		Entry("empty provider", llm.Config{APIKey: "x"}, "unsupported LLM provider"),
	)

	It("applies model defaults per provider", func() {
		openai, err := llm.New(llm.Config{Provider: llm.ProviderOpenAI, APIKey: "sk-test"})
		Expect(err).NotTo(HaveOccurred())
		Expect(openai.Model()).To(Equal("gpt-4o-mini"))

		anthropic, err := llm.New(llm.Config{Provider: llm.ProviderAnthropic, APIKey: "sk-ant-test"})
		Expect(err).NotTo(HaveOccurred())
		Expect(anthropic.Model()).To(Equal("claude-3-5-haiku-latest"))

		ollama, err := llm.New(llm.Config{Provider: llm.ProviderOllama})
		Expect(err).NotTo(HaveOccurred())
		Expect(ollama.Model()).To(Equal("llama3.1"))
	})

	It("keeps an explicitly configured model", func() {
		client, err := llm.New(llm.Config{Provider: llm.ProviderOpenAI, APIKey: "sk-test", Model: "gpt-4o"})
		Expect(err).NotTo(HaveOccurred())
		Expect(client.Model()).To(Equal("gpt-4o"))
	})
})

var _ = Describe("GenerateSchemaFrom", func() {
	type analysisResponse struct {
		Summary     string `json:"summary"`
		RootCause   string `json:"root_cause"`
		Remediation string `json:"remediation"`
	}

	It("reflects struct fields into a schema", func() {
		schema := llm.GenerateSchemaFrom(&analysisResponse{})
		Expect(schema).NotTo(BeNil())
	})
})
