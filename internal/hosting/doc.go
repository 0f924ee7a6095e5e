// Package hosting defines the deployment settings and error taxonomy shared by
// the repository and account services: filesystem roots, the repository group
// prefix, branch policy, and the catalog layout consumed by the repository browser.
package hosting
