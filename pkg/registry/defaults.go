package registry

// Default returns the built-in registry: three modules and the HR sidebar
func Default() *Registry {
	return &Registry{
		Modules: []Module{
			{ID: "employees", Name: "Employees", PathPrefix: "/employees", URL: "http://localhost:3001"},
			{ID: "payroll", Name: "Payroll", PathPrefix: "/payroll", URL: "http://localhost:3002"},
			{ID: "benefits", Name: "Benefits", PathPrefix: "/benefits", URL: "http://localhost:3003"},
		},
		Nav: []Section{
			{
				ID: "hr", Label: "HR Management", Icon: "users",
				Groups: []Group{
					{ID: "employees", Label: "Employees", Items: []Item{
						{ID: "emp-list", Label: "Employee List", Path: "/employees/list"},
						{ID: "emp-add", Label: "Add Employee", Path: "/employees/add"},
						{ID: "emp-org", Label: "Organization", Path: "/employees/org"},
						{ID: "emp-reports", Label: "Reports", Path: "/employees/reports"},
					}},
					{ID: "payroll", Label: "Payroll", Items: []Item{
						{ID: "pay-run", Label: "Run Payroll", Path: "/payroll/run"},
						{ID: "pay-history", Label: "History", Path: "/payroll/history"},
						{ID: "pay-settings", Label: "Settings", Path: "/payroll/settings"},
					}},
				},
			},
			{
				ID: "benefits", Label: "Benefits", Icon: "heart",
				Groups: []Group{
					{ID: "health", Label: "Health", Items: []Item{
						{ID: "health-plans", Label: "Plans", Path: "/benefits/health/plans"},
						{ID: "health-claims", Label: "Claims", Path: "/benefits/health/claims"},
						{ID: "health-providers", Label: "Providers", Path: "/benefits/health/providers"},
					}},
					{ID: "retirement", Label: "Retirement", Items: []Item{
						{ID: "retire-401k", Label: "401(k)", Path: "/benefits/retirement/401k"},
						{ID: "retire-pension", Label: "Pension", Path: "/benefits/retirement/pension"},
					}},
				},
			},
			{
				ID: "settings", Label: "Settings", Icon: "settings",
				Groups: []Group{
					{ID: "company", Label: "Company", Items: []Item{
						{ID: "company-profile", Label: "Profile", Path: "/settings/company/profile"},
						{ID: "company-locations", Label: "Locations", Path: "/settings/company/locations"},
					}},
					{ID: "security", Label: "Security", Items: []Item{
						{ID: "security-users", Label: "Users", Path: "/settings/security/users"},
						{ID: "security-roles", Label: "Roles", Path: "/settings/security/roles"},
					}},
				},
			},
		},
	}
}
