package mocklog

import (
	"pipemail.dev/triage/internal/domain"
)

// DefaultErrorType is served when the requested sample key is unknown.
const DefaultErrorType = "build_error"

type sample struct {
	errorType  string
	logs       string
	errorLines []string
	jobLinks   []domain.JobReference
}

// Get returns a canned acquisition result for errorType so the rest of the
// pipeline can run without a reachable CI system. Unknown keys fall back to
// the build_error sample; ok reports whether the key was known. Every call
// returns a fresh copy.
func Get(errorType string) (*domain.LogAcquisitionResult, bool) {
	s, ok := find(errorType)
	if !ok {
		s, _ = find(DefaultErrorType)
	}
	return &domain.LogAcquisitionResult{
		Success:    true,
		Source:     domain.LogSourceMock,
		Logs:       s.logs,
		ErrorLines: append([]string(nil), s.errorLines...),
		JobLinks:   append([]domain.JobReference(nil), s.jobLinks...),
		IsMock:     true,
	}, ok
}

// Categories lists the available sample keys in a stable order.
func Categories() []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = s.errorType
	}
	return out
}

func find(errorType string) (sample, bool) {
	for _, s := range samples {
		if s.errorType == errorType {
			return s, true
		}
	}
	return sample{}, false
}

var samples = []sample{
	{
		errorType: "build_error",
		logs: `$ mvn -B -s ci-settings.xml clean package
[INFO] Scanning for projects...
[INFO] Building ledger-service 3.4.1
[INFO] --- maven-compiler-plugin:3.11.0:compile (default-compile) @ ledger-service ---
[ERROR] COMPILATION ERROR :
[ERROR] /builds/bank/ledger-service/src/main/java/com/bank/ledger/TransferService.java:[87,21] cannot find symbol
[ERROR]   symbol:   class SettlementClient
[ERROR]   location: package com.bank.ledger.client
[INFO] BUILD FAILURE
[ERROR] Failed to execute goal org.apache.maven.plugins:maven-compiler-plugin:3.11.0:compile (default-compile) on project ledger-service: Compilation failure
ERROR: Job failed: exit code 1`,
		errorLines: []string{
			"[ERROR] COMPILATION ERROR :",
			"[ERROR] /builds/bank/ledger-service/src/main/java/com/bank/ledger/TransferService.java:[87,21] cannot find symbol",
			"[ERROR] Failed to execute goal org.apache.maven.plugins:maven-compiler-plugin:3.11.0:compile (default-compile) on project ledger-service: Compilation failure",
			"ERROR: Job failed: exit code 1",
		},
		jobLinks: []domain.JobReference{
			{Label: "build-jar", URL: "https://gitlab.bank.internal/payments/ledger-service/-/jobs/88101"},
			{Label: "unit-tests", URL: "https://gitlab.bank.internal/payments/ledger-service/-/jobs/88102"},
		},
	},
	{
		errorType: "syntax_error",
		logs: `[INFO] --- maven-compiler-plugin:3.11.0:compile (default-compile) @ cards-api ---
[ERROR] COMPILATION ERROR :
[ERROR] /builds/bank/cards-api/src/main/java/com/bank/cards/LimitCheck.java:[42,9] ';' expected
[ERROR] /builds/bank/cards-api/src/main/java/com/bank/cards/LimitCheck.java:[58,1] reached end of file while parsing
[INFO] 2 errors
[INFO] BUILD FAILURE
ERROR: Job failed: exit code 1`,
		errorLines: []string{
			"[ERROR] COMPILATION ERROR :",
			"[ERROR] /builds/bank/cards-api/src/main/java/com/bank/cards/LimitCheck.java:[42,9] ';' expected",
			"[ERROR] /builds/bank/cards-api/src/main/java/com/bank/cards/LimitCheck.java:[58,1] reached end of file while parsing",
		},
		jobLinks: []domain.JobReference{
			{Label: "compile", URL: "https://gitlab.bank.internal/cards/cards-api/-/jobs/73250"},
			{Label: "checkstyle", URL: "https://gitlab.bank.internal/cards/cards-api/-/jobs/73251"},
		},
	},
	{
		errorType: "test_failure",
		logs: `[INFO] --- maven-surefire-plugin:3.1.2:test (default-test) @ accounts-service ---
[INFO] Running com.bank.accounts.InterestCalculatorTest
[ERROR] Tests run: 12, Failures: 2, Errors: 0, Skipped: 0, Time elapsed: 4.781 s <<< FAILURE!
[ERROR] InterestCalculatorTest.accruesDailyInterest:66 expected:<41.10> but was:<41.09>
[ERROR] InterestCalculatorTest.roundsHalfEven:89 expected:<0.02> but was:<0.03>
[INFO] BUILD FAILURE
[ERROR] There are test failures.
ERROR: Job failed: exit code 1`,
		errorLines: []string{
			"[ERROR] Tests run: 12, Failures: 2, Errors: 0, Skipped: 0, Time elapsed: 4.781 s <<< FAILURE!",
			"[ERROR] InterestCalculatorTest.accruesDailyInterest:66 expected:<41.10> but was:<41.09>",
			"[ERROR] InterestCalculatorTest.roundsHalfEven:89 expected:<0.02> but was:<0.03>",
			"[ERROR] There are test failures.",
		},
		jobLinks: []domain.JobReference{
			{Label: "unit-tests", URL: "https://gitlab.bank.internal/deposits/accounts-service/-/jobs/91433"},
			{Label: "integration-tests", URL: "https://gitlab.bank.internal/deposits/accounts-service/-/jobs/91434"},
		},
	},
	{
		errorType: "config_error",
		logs: `[INFO] Scanning for projects...
[ERROR] Some problems were encountered while processing the POMs:
[ERROR] 'build.plugins.plugin.version' for org.springframework.boot:spring-boot-maven-plugin must be unique but found duplicate declarations @ line 214, column 21
[ERROR] Error resolving version for plugin 'com.bank.build:quality-gate' from the repositories [local, nexus-bank]: Plugin not found in any plugin repository
[ERROR] The build could not read 1 project
ERROR: Job failed: exit code 1`,
		errorLines: []string{
			"[ERROR] 'build.plugins.plugin.version' for org.springframework.boot:spring-boot-maven-plugin must be unique but found duplicate declarations @ line 214, column 21",
			"[ERROR] Error resolving version for plugin 'com.bank.build:quality-gate' from the repositories [local, nexus-bank]: Plugin not found in any plugin repository",
			"[ERROR] The build could not read 1 project",
		},
		jobLinks: []domain.JobReference{
			{Label: "validate", URL: "https://gitlab.bank.internal/platform/onboarding-api/-/jobs/66012"},
			{Label: "package", URL: "https://gitlab.bank.internal/platform/onboarding-api/-/jobs/66013"},
		},
	},
	{
		errorType: "dependency_error",
		logs: `[INFO] Building fx-gateway 1.9.0
[ERROR] Failed to execute goal on project fx-gateway: Could not resolve dependencies for project com.bank:fx-gateway:jar:1.9.0
[ERROR] Could not find artifact com.bank:swift-codec:jar:5.2.0-RC1 in nexus-bank (https://nexus.bank.internal/repository/maven-releases)
[ERROR] Try downloading the file manually from the project website
[INFO] BUILD FAILURE
ERROR: Job failed: exit code 1`,
		errorLines: []string{
			"[ERROR] Failed to execute goal on project fx-gateway: Could not resolve dependencies for project com.bank:fx-gateway:jar:1.9.0",
			"[ERROR] Could not find artifact com.bank:swift-codec:jar:5.2.0-RC1 in nexus-bank (https://nexus.bank.internal/repository/maven-releases)",
			"ERROR: Job failed: exit code 1",
		},
		jobLinks: []domain.JobReference{
			{Label: "resolve", URL: "https://gitlab.bank.internal/treasury/fx-gateway/-/jobs/54120"},
			{Label: "package", URL: "https://gitlab.bank.internal/treasury/fx-gateway/-/jobs/54121"},
		},
	},
	{
		errorType: "deployment_error",
		logs: `$ kubectl --context prod-cluster apply -k k8s/overlays/prod
deployment.apps/payment-gateway configured
$ kubectl rollout status deployment/payment-gateway --timeout=180s
Waiting for deployment "payment-gateway" rollout to finish: 1 old replicas are pending termination...
error: deployment "payment-gateway" exceeded its progress deadline
Error from server (BadRequest): container "payment-gateway" in pod "payment-gateway-7f9c44c6d8-x2jlv" is waiting to start: ImagePullBackOff
ERROR: Job failed: command terminated with exit code 1`,
		errorLines: []string{
			`error: deployment "payment-gateway" exceeded its progress deadline`,
			`Error from server (BadRequest): container "payment-gateway" in pod "payment-gateway-7f9c44c6d8-x2jlv" is waiting to start: ImagePullBackOff`,
			"ERROR: Job failed: command terminated with exit code 1",
		},
		jobLinks: []domain.JobReference{
			{Label: "deploy-prod", URL: "https://gitlab.bank.internal/payments/payment-gateway/-/jobs/99310"},
			{Label: "smoke-test", URL: "https://gitlab.bank.internal/payments/payment-gateway/-/jobs/99311"},
		},
	},
	{
		errorType: "database_error",
		logs: `[INFO] --- flyway-maven-plugin:9.22.0:migrate (default-cli) @ core-banking ---
[INFO] Database: jdbc:postgresql://db-uat-02.bank.internal:5432/corebank (PostgreSQL 15.4)
[INFO] Migrating schema "public" to version "12 - add settlement ledger index"
[ERROR] Migration V12__add_settlement_ledger_index.sql failed
[ERROR] SQL State  : 42P07
[ERROR] Message    : ERROR: relation "idx_settlement_ledger_entry" already exists
ERROR: Job failed: exit code 1`,
		errorLines: []string{
			"[ERROR] Migration V12__add_settlement_ledger_index.sql failed",
			"[ERROR] SQL State  : 42P07",
			`[ERROR] Message    : ERROR: relation "idx_settlement_ledger_entry" already exists`,
		},
		jobLinks: []domain.JobReference{
			{Label: "migrate-uat", URL: "https://gitlab.bank.internal/core/core-banking/-/jobs/47705"},
			{Label: "verify-schema", URL: "https://gitlab.bank.internal/core/core-banking/-/jobs/47706"},
		},
	},
	{
		errorType: "complex_error",
		logs: `[INFO] Building statement-batch 2.2.0
[ERROR] COMPILATION ERROR :
[ERROR] /builds/bank/statement-batch/src/main/java/com/bank/statement/Renderer.java:[120,35] cannot find symbol
[INFO] BUILD FAILURE
[ERROR] Failed to execute goal org.apache.maven.plugins:maven-compiler-plugin:3.11.0:compile on project statement-batch: Compilation failure
Caused by: org.postgresql.util.PSQLException: FATAL: remaining connection slots are reserved for non-replication superuser connections
	at com.bank.statement.ArchiveWriter.open(ArchiveWriter.java:54)
ERROR: Job failed: exit code 1`,
		errorLines: []string{
			"[ERROR] COMPILATION ERROR :",
			"[ERROR] /builds/bank/statement-batch/src/main/java/com/bank/statement/Renderer.java:[120,35] cannot find symbol",
			"Caused by: org.postgresql.util.PSQLException: FATAL: remaining connection slots are reserved for non-replication superuser connections",
			"ERROR: Job failed: exit code 1",
		},
		jobLinks: []domain.JobReference{
			{Label: "nightly-batch", URL: "https://gitlab.bank.internal/statements/statement-batch/-/jobs/30988"},
			{Label: "archive", URL: "https://gitlab.bank.internal/statements/statement-batch/-/jobs/30989"},
		},
	},
}
