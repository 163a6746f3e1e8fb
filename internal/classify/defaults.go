package classify

// Well-known domains used by the default rule table and built-in reviewers.
const (
	DomainGo                = "go"
	DomainTypeScript        = "typescript"
	DomainTypeScriptGraphQL = "typescript-graphql"
	DomainE2ETest           = "e2e-test"
	DomainUIComponent       = "ui-component"
	DomainInfraChart        = "infra-chart"
	DomainInfraTerraform    = "infra-terraform"
	DomainContainer         = "container"
	DomainCI                = "ci"
	DomainAuthPolicy        = "auth-policy"
	DomainDBMigration       = "db-migration"
	DomainDependencies      = "dependencies"
	DomainDocs              = "docs"
	DomainC                 = "c"
	DomainFluentBitPlugin   = "fluent-bit-plugin"
	DomainPython            = "python"
)

// DefaultRules returns the built-in rule table. Callers may append to or
// replace it through the manifest.
func DefaultRules() []Rule {
	return []Rule{
		Glob("*.go", DomainGo),

		Glob("*.ts", DomainTypeScript),
		Glob("*.tsx", DomainTypeScript),
		Glob("*.graphql", DomainTypeScriptGraphQL),
		Glob("*.gql", DomainTypeScriptGraphQL),
		Glob("*.resolver.ts", DomainTypeScriptGraphQL),

		Glob("*.spec.ts", DomainE2ETest),
		Glob("*.test.ts", DomainE2ETest),
		Glob("e2e/**", DomainE2ETest),
		Glob("**/e2e/**", DomainE2ETest),

		Glob("*.tsx", DomainUIComponent),
		Glob("*.jsx", DomainUIComponent),
		Glob("*.vue", DomainUIComponent),
		Glob("*.css", DomainUIComponent),
		Glob("*.scss", DomainUIComponent),

		Glob("Chart.yaml", DomainInfraChart),
		Glob("charts/**", DomainInfraChart),
		Glob("**/charts/**", DomainInfraChart),

		Glob("*.tf", DomainInfraTerraform),
		Glob("*.tfvars", DomainInfraTerraform),

		Glob("Dockerfile", DomainContainer),
		Glob("*.dockerfile", DomainContainer),
		Glob("docker-compose*.yml", DomainContainer),
		Glob("docker-compose*.yaml", DomainContainer),

		Glob(".github/workflows/**", DomainCI),
		Glob(".gitlab-ci.yml", DomainCI),

		Contains("/auth/", DomainAuthPolicy),
		Glob("*.rego", DomainAuthPolicy),

		Glob("migrations/**", DomainDBMigration),
		Glob("**/migrations/**", DomainDBMigration),
		Glob("*.sql", DomainDBMigration),

		Glob("go.mod", DomainDependencies),
		Glob("go.sum", DomainDependencies),
		Glob("package.json", DomainDependencies),
		Glob("package-lock.json", DomainDependencies),
		Glob("yarn.lock", DomainDependencies),
		Glob("pnpm-lock.yaml", DomainDependencies),
		Glob("requirements.txt", DomainDependencies),
		Glob("pyproject.toml", DomainDependencies),
		Glob("Cargo.toml", DomainDependencies),
		Glob("Gemfile", DomainDependencies),

		Glob("*.md", DomainDocs),
		Glob("*.rst", DomainDocs),
		Glob("docs/**", DomainDocs),

		Glob("*.py", DomainPython),

		Glob("*.c", DomainC),
		Glob("*.h", DomainC),
		Marker("FLB_PLUGIN", DomainC, DomainFluentBitPlugin),
		Marker("flb_plugin", DomainC, DomainFluentBitPlugin),
	}
}
