package mcpserver

type promptDef struct {
	name        string
	description string
	text        string
}

var promptCatalog = []promptDef{
	{
		name:        "format_ci_failure_alert",
		description: "Create a Slack alert for CI/CD failures with rich formatting.",
		text: `Format this GitHub Actions failure as a Slack message using ONLY Slack markdown syntax:

:rotating_light: *CI Failure Alert* :rotating_light:

A CI workflow has failed:
*Workflow*: workflow_name
*Branch*: branch_name
*Status*: Failed
*View Details*: <https://github.com/test/repo/actions/runs/123|View Logs>

Please check the logs and address any issues.

CRITICAL: Use EXACT Slack link format: <https://full-url|Link Text>
Examples:
- CORRECT: <https://github.com/user/repo|Repository>
- WRONG: [Repository](https://github.com/user/repo)
- WRONG: https://github.com/user/repo

Slack formatting rules:
- *text* for bold (NOT **text**)
- ` + "`text`" + ` for code
- > text for quotes
- Use simple bullet format without special characters
- :emoji_name: for emojis`,
	},
	{
		name:        "format_ci_success_summary",
		description: "Create a Slack message celebrating successful deployments.",
		text: `Format this successful GitHub Actions run as a Slack message using ONLY Slack markdown syntax:

:white_check_mark: *Deployment Successful* :white_check_mark:

Deployment completed successfully for [Repository Name]

*Changes:*
- Key feature or fix 1
- Key feature or fix 2

*Links:*
<https://github.com/user/repo|View Changes>

CRITICAL: Use EXACT Slack link format: <https://full-url|Link Text>
Examples:
- CORRECT: <https://github.com/user/repo|Repository>
- WRONG: [Repository](https://github.com/user/repo)
- WRONG: https://github.com/user/repo

Slack formatting rules:
- *text* for bold (NOT **text**)
- ` + "`text`" + ` for code
- > text for quotes
- Use simple bullet format with - or *
- :emoji_name: for emojis`,
	},
	{
		name:        "analyze_ci_results",
		description: "Analyze recent CI/CD results and provide insights.",
		text: `Please analyze the recent CI/CD results from GitHub Actions:

1. First, call get_recent_actions_events() to fetch the latest CI/CD events
2. Then call get_workflow_status() to check current workflow states
3. Identify any failures or issues that need attention
4. Provide actionable next steps based on the results

Format your response as:
## CI/CD Status Summary
- *Overall Health*: [Good/Warning/Critical]
- *Failed Workflows*: [List any failures with links]
- *Successful Workflows*: [List recent successes]
- *Recommendations*: [Specific actions to take]
- *Trends*: [Any patterns you notice]`,
	},
	{
		name:        "troubleshoot_workflow_failure",
		description: "Help troubleshoot a failing GitHub Actions workflow.",
		text: `Help troubleshoot failing GitHub Actions workflows:

1. Use get_recent_actions_events() to find recent failures
2. Use get_workflow_status() to see which workflows are failing
3. Analyze the failure patterns and timing
4. Provide systematic troubleshooting steps

Structure your response as:

## Workflow Troubleshooting Guide

### Failed Workflow Details
- *Workflow Name*: [Name of failing workflow]
- *Failure Type*: [Test/Build/Deploy/Lint]
- *First Failed*: [When did it start failing]
- *Failure Rate*: [Intermittent or consistent]

### Diagnostic Information
- *Error Patterns*: [Common error messages or symptoms]
- *Recent Changes*: [What changed before failures started]
- *Dependencies*: [External services or resources involved]

### Possible Causes (ordered by likelihood)
1. *[Most Likely]*: [Description and why]
2. *[Likely]*: [Description and why]
3. *[Possible]*: [Description and why]

### Suggested Fixes
*Immediate Actions:*
- [Quick fix to try first]
- [Second quick fix]

*Investigation Steps:*
- [How to gather more info]
- [Logs or data to check]

*Long-term Solutions:*
- [Preventive measure]
- [Process improvement]`,
	},
	{
		name:        "create_deployment_summary",
		description: "Generate a deployment summary for team communication.",
		text: `Create a deployment summary for team communication:

1. Check workflow status with get_workflow_status()
2. Look specifically for deployment-related workflows
3. Note the deployment outcome, timing, and any issues

Format as a concise message suitable for Slack:

:rocket: *Deployment Update*
- *Status*: [Success / Failed / In Progress]
- *Environment*: [Production/Staging/Dev]
- *Version/Commit*: [If available from workflow data]
- *Duration*: [If available]
- *Key Changes*: [Brief summary if available]
- *Issues*: [Any problems encountered]
- *Next Steps*: [Required actions if failed]

Keep it brief but informative for team awareness.`,
	},
}
